package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

// CreateTransaction appends the row and applies its balance effects inside
// one database transaction: the ledger either records the event completely
// (both transfer legs included) or not at all.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin create transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := insertTransaction(ctx, tx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	effects, err := created.Effects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := applyEffects(ctx, tx, effects); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction posted",
		"id", created.ID,
		"type", created.Type,
		"amount_cents", created.Amount.Cents,
		"account_id", created.AccountID,
		"origin", created.Origin)
	return created, nil
}

func insertTransaction(ctx context.Context, ex execer, t core.Transaction) (core.Transaction, error) {
	if t.Origin == "" {
		t.Origin = core.OriginUser
	}
	res, err := ex.ExecContext(ctx,
		`INSERT INTO transactions (type, amount_cents, account_id, destination_id, category_id, date, description, origin, rule_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Type, t.Amount.Cents, t.AccountID,
		nullableID(t.DestinationID), nullableID(t.CategoryID),
		t.Date.Format(dateLayout), t.Description, t.Origin, nullableID(t.RuleID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

// UpdateTransaction persists new field values with the mandatory
// reverse-then-forward sequence: undo the stored effects, write the new
// fields, apply the new effects. Applying only the amount delta would go
// wrong whenever the type or the accounts change too, so the full reversal
// always runs, all inside one database transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := getTransaction(ctx, tx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	reverse, err := old.ReverseEffects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := applyEffects(ctx, tx, reverse); err != nil {
		return core.Transaction{}, err
	}

	// Origin and rule back-reference are immutable through the update path.
	t.Origin = old.Origin
	t.RuleID = old.RuleID
	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount_cents = ?, account_id = ?, destination_id = ?, category_id = ?, date = ?, description = ?
		 WHERE id = ?`,
		t.Type, t.Amount.Cents, t.AccountID,
		nullableID(t.DestinationID), nullableID(t.CategoryID),
		t.Date.Format(dateLayout), t.Description, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	forward, err := t.Effects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := applyEffects(ctx, tx, forward); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", t.ID,
		"old_type", old.Type,
		"new_type", t.Type,
		"old_amount_cents", old.Amount.Cents,
		"new_amount_cents", t.Amount.Cents)
	return t, nil
}

// DeleteTransaction reverses the stored effects and removes the row, as
// one database transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := getTransaction(ctx, tx, id)
	if err != nil {
		return err
	}

	reverse, err := old.ReverseEffects()
	if err != nil {
		return err
	}
	if err := applyEffects(ctx, tx, reverse); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"id", id,
		"type", old.Type,
		"amount_cents", old.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

const transactionColumns = `id, type, amount_cents, account_id, destination_id, category_id, date, description, origin, rule_id`

func getTransaction(ctx context.Context, ex execer, id int64) (core.Transaction, error) {
	row := ex.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var destination, category, rule sql.NullInt64
	var date string
	err := row.Scan(&t.ID, &t.Type, &t.Amount.Cents, &t.AccountID,
		&destination, &category, &date, &t.Description, &t.Origin, &rule)
	if err != nil {
		return core.Transaction{}, err
	}
	t.DestinationID = destination.Int64
	t.CategoryID = category.Int64
	t.RuleID = rule.Int64
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	t.Date = core.DateOf(parsed)
	return t, nil
}

// ListTransactionsByWindow returns transactions with from <= date < to,
// ordered by date then id.
func (r *SQLiteRepository) ListTransactionsByWindow(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE date >= ? AND date < ? ORDER BY date, id`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// ListTransactionsByMonth is the calendar-month window shorthand.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := core.DateOf(from.AddDate(0, 1, 0))
	return r.ListTransactionsByWindow(ctx, from, to)
}

// SumEffectsForAccount replays the log for one account: the signed sum of
// every transaction currently attributing to it. Used by audit tooling to
// detect reconciliation divergence; it is not how balances are maintained.
func (r *SQLiteRepository) SumEffectsForAccount(ctx context.Context, accountID int64) (int64, error) {
	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN type = 'income' AND account_id = ? THEN amount_cents
			WHEN type = 'expense' AND account_id = ? THEN -amount_cents
			WHEN type = 'transfer' AND account_id = ? THEN -amount_cents
			WHEN type = 'transfer' AND destination_id = ? THEN amount_cents
			ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = ? OR destination_id = ?`,
		accountID, accountID, accountID, accountID, accountID, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum account effects: %w", err)
	}
	return sum.Int64, nil
}

// GetPendingExportTransactions returns transactions not yet appended to
// the spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingExportTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE exported = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// MarkExported records a successful spreadsheet append.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1, export_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

// MarkExportError flags a transaction whose spreadsheet append failed so
// the sweep can retry it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
