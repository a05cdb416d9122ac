package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func (r *SQLiteRepository) CreateInstallment(ctx context.Context, i core.Installment) (core.Installment, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO installments (name, total_cents, term_months, annual_rate, monthly_payment_cents, remaining_cents, active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		i.Name, i.Total.Cents, i.TermMonths, i.AnnualRate.String(),
		i.MonthlyPayment.Cents, i.Remaining.Cents)
	if err != nil {
		return core.Installment{}, fmt.Errorf("create installment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Installment{}, fmt.Errorf("create installment: %w", err)
	}
	i.ID = id
	i.Active = true

	slog.InfoContext(ctx, "Installment created",
		"id", i.ID,
		"name", i.Name,
		"total_cents", i.Total.Cents,
		"monthly_payment_cents", i.MonthlyPayment.Cents)
	return i, nil
}

const installmentColumns = `id, name, total_cents, term_months, annual_rate, monthly_payment_cents, remaining_cents, active`

func (r *SQLiteRepository) GetInstallment(ctx context.Context, id int64) (core.Installment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	i, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return core.Installment{}, &core.NotFoundError{Entity: "installment", ID: id}
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}
	return i, nil
}

func scanInstallment(row rowScanner) (core.Installment, error) {
	var i core.Installment
	var rate string
	var active int
	err := row.Scan(&i.ID, &i.Name, &i.Total.Cents, &i.TermMonths, &rate,
		&i.MonthlyPayment.Cents, &i.Remaining.Cents, &active)
	if err != nil {
		return core.Installment{}, err
	}
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return core.Installment{}, fmt.Errorf("parse annual rate %q: %w", rate, err)
	}
	i.AnnualRate = parsed
	i.Active = active == 1
	return i, nil
}

func (r *SQLiteRepository) ListInstallments(ctx context.Context, includeInactive bool) ([]core.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var installments []core.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, i)
	}
	return installments, rows.Err()
}

// RecordInstallmentPayment decrements the remaining amount. Remaining is
// monotonically non-increasing and clamps at zero; the installment turns
// inactive exactly when it reaches zero. Runs as one database transaction
// so the clamp and the deactivation cannot split.
func (r *SQLiteRepository) RecordInstallmentPayment(ctx context.Context, id, amountCents int64) (core.Installment, error) {
	if amountCents <= 0 {
		return core.Installment{}, core.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Installment{}, fmt.Errorf("begin installment payment: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	i, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return core.Installment{}, &core.NotFoundError{Entity: "installment", ID: id}
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}

	remaining := i.Remaining.Cents - amountCents
	if remaining < 0 {
		remaining = 0
	}
	active := remaining > 0

	if _, err := tx.ExecContext(ctx,
		`UPDATE installments SET remaining_cents = ?, active = ? WHERE id = ?`,
		remaining, boolToInt(active), id); err != nil {
		return core.Installment{}, fmt.Errorf("update installment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Installment{}, fmt.Errorf("commit installment payment: %w", err)
	}

	i.Remaining.Cents = remaining
	i.Active = active

	slog.InfoContext(ctx, "Installment payment recorded",
		"id", id,
		"amount_cents", amountCents,
		"remaining_cents", remaining,
		"active", active)
	return i, nil
}
