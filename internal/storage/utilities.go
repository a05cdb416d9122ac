package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

func (r *SQLiteRepository) CreateMeter(ctx context.Context, m core.UtilityMeter) (core.UtilityMeter, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO utility_meters (name, owner, kind, active) VALUES (?, ?, ?, 1)`,
		m.Name, m.Owner, m.Kind)
	if err != nil {
		return core.UtilityMeter{}, fmt.Errorf("create meter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.UtilityMeter{}, fmt.Errorf("create meter: %w", err)
	}
	m.ID = id
	m.Active = true

	slog.InfoContext(ctx, "Utility meter created",
		"id", m.ID, "name", m.Name, "owner", m.Owner, "kind", m.Kind)
	return m, nil
}

func (r *SQLiteRepository) GetMeter(ctx context.Context, id int64) (core.UtilityMeter, error) {
	var m core.UtilityMeter
	var active int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner, kind, active FROM utility_meters WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Owner, &m.Kind, &active)
	if err != nil {
		return core.UtilityMeter{}, &core.NotFoundError{Entity: "utility meter", ID: id}
	}
	m.Active = active == 1
	return m, nil
}

func (r *SQLiteRepository) ListMeters(ctx context.Context) ([]core.UtilityMeter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner, kind, active FROM utility_meters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list meters: %w", err)
	}
	defer rows.Close()

	var meters []core.UtilityMeter
	for rows.Next() {
		var m core.UtilityMeter
		var active int
		if err := rows.Scan(&m.ID, &m.Name, &m.Owner, &m.Kind, &active); err != nil {
			return nil, fmt.Errorf("scan meter: %w", err)
		}
		m.Active = active == 1
		meters = append(meters, m)
	}
	return meters, rows.Err()
}

// ReplaceTiers swaps the whole electricity tariff table atomically.
func (r *SQLiteRepository) ReplaceTiers(ctx context.Context, tiers []core.ElectricityTier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tiers: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM electricity_tiers`); err != nil {
		return fmt.Errorf("clear tiers: %w", err)
	}
	for _, tier := range tiers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO electricity_tiers (position, limit_units, price_cents) VALUES (?, ?, ?)`,
			tier.Position, tier.Limit, tier.Price.Cents); err != nil {
			return fmt.Errorf("insert tier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tiers: %w", err)
	}

	slog.InfoContext(ctx, "Electricity tariff replaced", "tiers", len(tiers))
	return nil
}

// ListTiers returns the tariff table in allocation order.
func (r *SQLiteRepository) ListTiers(ctx context.Context) ([]core.ElectricityTier, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, position, limit_units, price_cents FROM electricity_tiers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []core.ElectricityTier
	for rows.Next() {
		var t core.ElectricityTier
		if err := rows.Scan(&t.ID, &t.Position, &t.Limit, &t.Price.Cents); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

func (r *SQLiteRepository) InsertBill(ctx context.Context, b core.UtilityBill) (core.UtilityBill, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO utility_bills (meter_id, kind, period_start, period_end, prev_reading, curr_reading, usage, base_cents, vat_cents, total_cents, includes_vat)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.MeterID, b.Kind,
		b.PeriodStart.Format(dateLayout), b.PeriodEnd.Format(dateLayout),
		b.PrevReading, b.CurrReading, b.Usage,
		b.Base.Cents, b.VAT.Cents, b.Total.Cents, boolToInt(b.IncludesVAT))
	if err != nil {
		return core.UtilityBill{}, fmt.Errorf("insert bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.UtilityBill{}, fmt.Errorf("insert bill: %w", err)
	}
	b.ID = id

	slog.InfoContext(ctx, "Utility bill stored",
		"id", b.ID,
		"meter_id", b.MeterID,
		"kind", b.Kind,
		"usage", b.Usage,
		"total_cents", b.Total.Cents)
	return b, nil
}

func (r *SQLiteRepository) ListBillsByMeter(ctx context.Context, meterID int64) ([]core.UtilityBill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, meter_id, kind, period_start, period_end, prev_reading, curr_reading, usage, base_cents, vat_cents, total_cents, includes_vat
		 FROM utility_bills WHERE meter_id = ? ORDER BY id DESC`, meterID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.UtilityBill
	for rows.Next() {
		var b core.UtilityBill
		var start, end string
		var includesVAT int
		if err := rows.Scan(&b.ID, &b.MeterID, &b.Kind, &start, &end,
			&b.PrevReading, &b.CurrReading, &b.Usage,
			&b.Base.Cents, &b.VAT.Cents, &b.Total.Cents, &includesVAT); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.IncludesVAT = includesVAT == 1
		startDate, err := time.Parse(dateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("parse bill period start %q: %w", start, err)
		}
		endDate, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("parse bill period end %q: %w", end, err)
		}
		b.PeriodStart = core.DateOf(startDate)
		b.PeriodEnd = core.DateOf(endDate)
		bills = append(bills, b)
	}
	return bills, rows.Err()
}
