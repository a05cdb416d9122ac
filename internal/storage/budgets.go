package storage

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// UpsertBudget creates or replaces the single budget row for a
// (category, month, year) triple.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, month, year, limit_cents) VALUES (?, ?, ?, ?)
		 ON CONFLICT (category_id, month, year) DO UPDATE SET limit_cents = excluded.limit_cents`,
		b.CategoryID, b.Month, b.Year, b.Limit.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		b.ID = id
	}

	slog.InfoContext(ctx, "Budget saved",
		"category_id", b.CategoryID,
		"month", b.Month,
		"year", b.Year,
		"limit_cents", b.Limit.Cents)
	return b, nil
}

// ListBudgetsForMonth returns every budget row for the period.
func (r *SQLiteRepository) ListBudgetsForMonth(ctx context.Context, year, month int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, month, year, limit_cents FROM budgets WHERE year = ? AND month = ? ORDER BY category_id`,
		year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Month, &b.Year, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudget removes a budget row; the category's transactions are
// untouched and it simply becomes unbudgeted.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	return nil
}
