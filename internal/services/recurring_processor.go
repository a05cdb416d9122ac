package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// RecurringProcessor materializes concrete transactions from recurring
// rules. It is pull based: nothing happens until ProcessDue is invoked,
// typically from the worker ticker or at application start.
type RecurringProcessor struct {
	rules  RuleStore
	events EventPublisher
}

func NewRecurringProcessor(rules RuleStore, events EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{rules: rules, events: events}
}

// ProcessDue posts every occurrence that is due as of the given time and
// returns how many transactions were created.
//
// Each rule catches up fully: advance one period, re-check due, repeat
// until next_date is in the future. A rule three months behind yields
// three transactions, each dated on its own cadence, never at asOf. The
// schedule advance is a compare-and-swap in storage, so two overlapping
// invocations cannot materialize the same period twice; the loser of the
// race just skips the period.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, asOf time.Time) (int, error) {
	if p.rules == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	cutoff := core.DateOf(asOf)
	due, err := p.rules.ListDueRules(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list due rules: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"due", len(due),
		"as_of", cutoff.Format("2006-01-02"))

	created := 0
	for _, rule := range due {
		n, err := p.catchUp(ctx, rule, cutoff)
		created += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring rule",
				"rule_id", rule.ID,
				"error", err)
			continue
		}
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"rules_checked", len(due),
		"transactions_created", created)
	return created, nil
}

func (p *RecurringProcessor) catchUp(ctx context.Context, rule core.RecurringRule, cutoff core.Date) (int, error) {
	created := 0
	for !rule.NextDate.After(cutoff.Time) {
		newNext, err := core.NextAfter(rule.NextDate, rule.Every)
		if err != nil {
			return created, err
		}

		transaction, claimed, err := p.rules.MaterializeRule(ctx, rule, newNext)
		if err != nil {
			return created, err
		}
		if !claimed {
			// Another invocation advanced this rule; leave it to them.
			slog.InfoContext(ctx, "Recurring period already claimed",
				"rule_id", rule.ID,
				"next_date", rule.NextDate.Format("2006-01-02"))
			return created, nil
		}

		created++
		p.publish(ctx, amqp.NewLedgerEventMessage(amqp.EventTransactionPosted, transaction.ID))

		rule.LastGenerated = rule.NextDate
		rule.NextDate = newNext
	}
	return created, nil
}

func (p *RecurringProcessor) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", msg.Event,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
}

// CreateRule validates and stores a new recurring rule.
func (p *RecurringProcessor) CreateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, core.NewValidationError("%s", err.Error())
	}
	return p.rules.CreateRule(ctx, rule)
}

// PauseRule stops a rule from materializing without losing its schedule.
func (p *RecurringProcessor) PauseRule(ctx context.Context, id int64) error {
	return p.rules.SetRuleActive(ctx, id, false)
}

// ResumeRule reactivates a paused rule. Its next_date is unchanged, so
// the next ProcessDue will catch up anything missed while paused.
func (p *RecurringProcessor) ResumeRule(ctx context.Context, id int64) error {
	return p.rules.SetRuleActive(ctx, id, true)
}
