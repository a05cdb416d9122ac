// Package storage persists the ledger in SQLite. All multi-step balance
// work (transfers, reverse-then-forward updates, reconciliation) runs
// inside a single database transaction; a crash between steps can never
// leave an account half-reversed.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx so the balance helpers
// can run standalone or inside a larger transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// applyEffect is the balance mutation primitive: an atomic in-database
// increment, never a read-modify-write round trip. Every balance change
// in the ledger flows through here except the reconciliation force-set.
func applyEffect(ctx context.Context, ex execer, accountID, deltaCents int64) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		deltaCents, accountID)
	if err != nil {
		return fmt.Errorf("apply balance effect: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance effect: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{Entity: "account", ID: accountID}
	}
	return nil
}

func applyEffects(ctx context.Context, ex execer, effects []core.Effect) error {
	for _, e := range effects {
		if err := applyEffect(ctx, ex, e.AccountID, e.Delta); err != nil {
			return err
		}
	}
	return nil
}

// forceSetBalance writes an absolute balance. Reserved for reconciliation;
// nothing else may set a balance to a target value.
func forceSetBalance(ctx context.Context, ex execer, accountID, cents int64) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cents, accountID)
	if err != nil {
		return fmt.Errorf("force-set balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("force-set balance: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{Entity: "account", ID: accountID}
	}
	return nil
}

// ApplyEffect adjusts a single account balance by a signed delta.
func (r *SQLiteRepository) ApplyEffect(ctx context.Context, accountID, deltaCents int64) error {
	return applyEffect(ctx, r.db, accountID, deltaCents)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, balance_cents, currency, active) VALUES (?, ?, ?, 1)`,
		a.Name, a.Balance.Cents, a.Currency)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	a.Active = true

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"name", a.Name,
		"currency", a.Currency,
		"opening_balance_cents", a.Balance.Cents)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return getAccount(ctx, r.db, id)
}

func getAccount(ctx context.Context, ex execer, id int64) (core.Account, error) {
	var a core.Account
	var active int
	err := ex.QueryRowContext(ctx,
		`SELECT id, name, balance_cents, currency, active FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Balance.Cents, &a.Currency, &active)
	if err == sql.ErrNoRows {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Active = active == 1
	return a, nil
}

// ListAccounts returns accounts, optionally including deactivated ones.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	query := `SELECT id, name, balance_cents, currency, active FROM accounts`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var active int
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance.Cents, &a.Currency, &active); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Active = active == 1
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeactivateAccount soft-deletes an account. The row stays so historical
// transactions can still be reversed against it.
func (r *SQLiteRepository) DeactivateAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{Entity: "account", ID: id}
	}

	slog.InfoContext(ctx, "Account deactivated", "id", id)
	return nil
}
