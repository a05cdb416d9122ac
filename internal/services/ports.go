// Package services carries the business operations of the ledger:
// posting and editing transactions, processing recurring rules,
// reconciling balances, budget rollups, installments and utility billing.
// Storage is reached through narrow per-service interfaces so each
// service can be exercised against a fake in tests.
package services

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

type (
	// LedgerStore is what the transaction log manager needs from storage.
	// Implementations must run each write atomically: both transfer legs,
	// and the full reverse-then-forward sequence of updates and deletes,
	// commit or roll back as one unit.
	LedgerStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		ListAccounts(ctx context.Context, includeInactive bool) ([]core.Account, error)
		DeactivateAccount(ctx context.Context, id int64) error

		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
		ListTransactionsByWindow(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
		ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
		SumEffectsForAccount(ctx context.Context, accountID int64) (int64, error)
	}

	// RuleStore is what the recurrence processor needs. MaterializeRule
	// must advance the schedule with a compare-and-swap on the rule's
	// current next date and report claimed=false when another invocation
	// got there first.
	RuleStore interface {
		CreateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error)
		GetRule(ctx context.Context, id int64) (core.RecurringRule, error)
		ListDueRules(ctx context.Context, asOf core.Date) ([]core.RecurringRule, error)
		SetRuleActive(ctx context.Context, id int64, active bool) error
		MaterializeRule(ctx context.Context, rule core.RecurringRule, newNext core.Date) (core.Transaction, bool, error)
	}

	ReconciliationStore interface {
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		Reconcile(ctx context.Context, accountID int64, actual core.Money, date core.Date, notes string) (core.Reconciliation, error)
		ListReconciliations(ctx context.Context, accountID int64) ([]core.Reconciliation, error)
	}

	BudgetStore interface {
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) error
		ListBudgetsForMonth(ctx context.Context, year, month int) ([]core.Budget, error)
		ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	}

	InstallmentStore interface {
		CreateInstallment(ctx context.Context, i core.Installment) (core.Installment, error)
		GetInstallment(ctx context.Context, id int64) (core.Installment, error)
		ListInstallments(ctx context.Context, includeInactive bool) ([]core.Installment, error)
		RecordInstallmentPayment(ctx context.Context, id, amountCents int64) (core.Installment, error)
	}

	UtilityStore interface {
		CreateMeter(ctx context.Context, m core.UtilityMeter) (core.UtilityMeter, error)
		GetMeter(ctx context.Context, id int64) (core.UtilityMeter, error)
		ListMeters(ctx context.Context) ([]core.UtilityMeter, error)
		ReplaceTiers(ctx context.Context, tiers []core.ElectricityTier) error
		ListTiers(ctx context.Context) ([]core.ElectricityTier, error)
		InsertBill(ctx context.Context, b core.UtilityBill) (core.UtilityBill, error)
		ListBillsByMeter(ctx context.Context, meterID int64) ([]core.UtilityBill, error)
	}

	// EventPublisher pushes ledger events to the message bus. Publishing
	// is best effort: a failed publish is logged, never fails the
	// operation that produced it.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
	}
)
