package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

// Reconcile compares the stored balance with the user-confirmed actual
// value and corrects the account, all inside one database transaction.
//
// A nonzero difference inserts an adjustment transaction directly into the
// log (no delta application; its presence is for audit and history views)
// and force-sets the balance to the confirmed value. From that point the
// balance is authoritatively the user's number, not the replayed image of
// the log, and the divergence is intentional.
func (r *SQLiteRepository) Reconcile(ctx context.Context, accountID int64, actual core.Money, date core.Date, notes string) (core.Reconciliation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Reconciliation{}, fmt.Errorf("begin reconcile: %w", err)
	}
	defer tx.Rollback()

	account, err := getAccount(ctx, tx, accountID)
	if err != nil {
		return core.Reconciliation{}, err
	}

	rec := core.Reconciliation{
		AccountID:  accountID,
		Date:       date,
		System:     account.Balance,
		Actual:     actual,
		Difference: core.Money{Cents: actual.Cents - account.Balance.Cents},
		Notes:      notes,
	}

	if rec.Difference.Cents != 0 {
		adjustmentType := core.Income
		amount := rec.Difference.Cents
		if amount < 0 {
			adjustmentType = core.Expense
			amount = -amount
		}
		adjustment, err := insertTransaction(ctx, tx, core.Transaction{
			Type:        adjustmentType,
			Amount:      core.Money{Cents: amount},
			AccountID:   accountID,
			Date:        date,
			Description: "Balance reconciliation",
			Origin:      core.OriginAdjustment,
		})
		if err != nil {
			return core.Reconciliation{}, err
		}
		rec.AdjustmentID = adjustment.ID

		if err := forceSetBalance(ctx, tx, accountID, actual.Cents); err != nil {
			return core.Reconciliation{}, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reconciliations (account_id, date, system_cents, actual_cents, difference_cents, adjustment_id, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.AccountID, rec.Date.Format(dateLayout),
		rec.System.Cents, rec.Actual.Cents, rec.Difference.Cents,
		nullableID(rec.AdjustmentID), rec.Notes)
	if err != nil {
		return core.Reconciliation{}, fmt.Errorf("insert reconciliation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Reconciliation{}, fmt.Errorf("insert reconciliation: %w", err)
	}
	rec.ID = id

	if err := tx.Commit(); err != nil {
		return core.Reconciliation{}, fmt.Errorf("commit reconcile: %w", err)
	}

	slog.InfoContext(ctx, "Account reconciled",
		"account_id", accountID,
		"system_cents", rec.System.Cents,
		"actual_cents", rec.Actual.Cents,
		"difference_cents", rec.Difference.Cents,
		"adjustment_id", rec.AdjustmentID)
	return rec, nil
}

// ListReconciliations returns an account's reconciliation history, newest
// first. Rows are append-only and never mutated after creation.
func (r *SQLiteRepository) ListReconciliations(ctx context.Context, accountID int64) ([]core.Reconciliation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, date, system_cents, actual_cents, difference_cents, adjustment_id, notes
		 FROM reconciliations WHERE account_id = ? ORDER BY id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []core.Reconciliation
	for rows.Next() {
		var rec core.Reconciliation
		var date string
		var adjustment sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.AccountID, &date,
			&rec.System.Cents, &rec.Actual.Cents, &rec.Difference.Cents,
			&adjustment, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		rec.AdjustmentID = adjustment.Int64
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse reconciliation date %q: %w", date, err)
		}
		rec.Date = core.DateOf(parsed)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
