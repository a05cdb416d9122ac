package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (type, amount_cents, account_id, destination_id, category_id, description, every, next_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Type, rule.Amount.Cents, rule.AccountID,
		nullableID(rule.DestinationID), nullableID(rule.CategoryID),
		rule.Description, rule.Every, rule.NextDate.Format(dateLayout), boolToInt(rule.Active))
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create recurring rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create recurring rule: %w", err)
	}
	rule.ID = id

	slog.InfoContext(ctx, "Recurring rule created",
		"id", rule.ID,
		"every", rule.Every,
		"next_date", rule.NextDate.Format(dateLayout),
		"amount_cents", rule.Amount.Cents)
	return rule, nil
}

const ruleColumns = `id, type, amount_cents, account_id, destination_id, category_id, description, every, next_date, last_generated, active`

func (r *SQLiteRepository) GetRule(ctx context.Context, id int64) (core.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return core.RecurringRule{}, &core.NotFoundError{Entity: "recurring rule", ID: id}
	}
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule: %w", err)
	}
	return rule, nil
}

func scanRule(row rowScanner) (core.RecurringRule, error) {
	var rule core.RecurringRule
	var destination, category sql.NullInt64
	var nextDate string
	var lastGenerated sql.NullString
	var active int
	err := row.Scan(&rule.ID, &rule.Type, &rule.Amount.Cents, &rule.AccountID,
		&destination, &category, &rule.Description, &rule.Every,
		&nextDate, &lastGenerated, &active)
	if err != nil {
		return core.RecurringRule{}, err
	}
	rule.DestinationID = destination.Int64
	rule.CategoryID = category.Int64
	rule.Active = active == 1

	parsed, err := time.Parse(dateLayout, nextDate)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("parse next date %q: %w", nextDate, err)
	}
	rule.NextDate = core.DateOf(parsed)

	if lastGenerated.Valid {
		parsed, err := time.Parse(dateLayout, lastGenerated.String)
		if err != nil {
			return core.RecurringRule{}, fmt.Errorf("parse last generated %q: %w", lastGenerated.String, err)
		}
		rule.LastGenerated = core.DateOf(parsed)
	}
	return rule, nil
}

// ListDueRules returns every active rule whose next date is on or before
// asOf. Paused rules are simply skipped.
func (r *SQLiteRepository) ListDueRules(ctx context.Context, asOf core.Date) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE active = 1 AND next_date <= ? ORDER BY id`,
		asOf.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list due rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SetRuleActive pauses or resumes a rule.
func (r *SQLiteRepository) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{Entity: "recurring rule", ID: id}
	}
	return nil
}

// MaterializeRule posts one occurrence of a due rule and advances its
// schedule, as a single database transaction. The advance is a
// compare-and-swap on the rule's current next_date: if another invocation
// already claimed this period the update matches zero rows and the whole
// transaction rolls back with claimed=false, so a period can never be
// materialized twice.
func (r *SQLiteRepository) MaterializeRule(ctx context.Context, rule core.RecurringRule, newNext core.Date) (core.Transaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("begin materialize rule: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_rules SET next_date = ?, last_generated = ? WHERE id = ? AND next_date = ? AND active = 1`,
		newNext.Format(dateLayout), rule.NextDate.Format(dateLayout),
		rule.ID, rule.NextDate.Format(dateLayout))
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("advance rule schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("advance rule schedule: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, false, nil
	}

	// The transaction is dated at the rule's due date, not at the
	// processing time, so cadence survives a late scheduler run.
	t := core.Transaction{
		Type:          rule.Type,
		Amount:        rule.Amount,
		AccountID:     rule.AccountID,
		DestinationID: rule.DestinationID,
		CategoryID:    rule.CategoryID,
		Date:          rule.NextDate,
		Description:   rule.Description,
		Origin:        core.OriginRecurring,
		RuleID:        rule.ID,
	}
	created, err := insertTransaction(ctx, tx, t)
	if err != nil {
		return core.Transaction{}, false, err
	}

	effects, err := created.Effects()
	if err != nil {
		return core.Transaction{}, false, err
	}
	if err := applyEffects(ctx, tx, effects); err != nil {
		return core.Transaction{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, false, fmt.Errorf("commit materialize rule: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule materialized",
		"rule_id", rule.ID,
		"transaction_id", created.ID,
		"date", created.Date.Format(dateLayout),
		"next_date", newNext.Format(dateLayout))
	return created, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
