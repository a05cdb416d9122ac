package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// LedgerService is the transaction log manager. Every balance change it
// causes flows through the storage layer's effect primitive; the service
// itself only validates, orchestrates and publishes events.
type LedgerService struct {
	store  LedgerStore
	events EventPublisher
}

func NewLedgerService(store LedgerStore, events EventPublisher) *LedgerService {
	return &LedgerService{store: store, events: events}
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, core.NewValidationError("%s", err.Error())
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *LedgerService) ListAccounts(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, includeInactive)
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// DeactivateAccount soft-deletes: the row survives so historical
// transactions keep a reversible reference.
func (s *LedgerService) DeactivateAccount(ctx context.Context, id int64) error {
	return s.store.DeactivateAccount(ctx, id)
}

// CreateTransaction validates the references, posts the row and applies
// its balance effects. New transactions require active accounts; only the
// reversal paths accept deactivated ones.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.NewValidationError("%s", err.Error())
	}
	if err := s.checkAccountsUsable(ctx, t, true); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.EventTransactionPosted, created.ID))
	return created, nil
}

// UpdateTransaction persists new field values through the mandatory
// reverse-then-forward sequence in storage. Updating a transaction to
// identical values leaves every balance unchanged.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == 0 {
		return core.Transaction{}, core.NewValidationError("missing transaction id")
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.NewValidationError("%s", err.Error())
	}
	// The referenced accounts may be deactivated by now; the edit still
	// has to reverse and reapply against them, so only existence counts.
	if err := s.checkAccountsUsable(ctx, t, false); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.EventTransactionUpdated, updated.ID))
	return updated, nil
}

// DeleteTransaction reverses the stored effects and removes the row.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.EventTransactionDeleted, id))
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return s.store.ListTransactionsByMonth(ctx, year, month)
}

// MonthSummary recomputes the income/expense/net rollup from the log for
// the requested window on every call; nothing is cached.
func (s *LedgerService) MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	transactions, err := s.store.ListTransactionsByMonth(ctx, year, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	return core.SummarizeMonth(year, month, transactions), nil
}

// DayGroups derives the calendar-view breakdown for a month.
func (s *LedgerService) DayGroups(ctx context.Context, year, month int) ([]core.DayGroup, error) {
	transactions, err := s.store.ListTransactionsByMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("day groups: %w", err)
	}
	return core.GroupByDay(transactions), nil
}

func (s *LedgerService) checkAccountsUsable(ctx context.Context, t core.Transaction, requireActive bool) error {
	account, err := s.store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if requireActive && !account.Active {
		return core.NewValidationError("account %d is deactivated", t.AccountID)
	}
	if t.Type == core.Transfer {
		destination, err := s.store.GetAccount(ctx, t.DestinationID)
		if err != nil {
			return err
		}
		if requireActive && !destination.Active {
			return core.NewValidationError("destination account %d is deactivated", t.DestinationID)
		}
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
		// The row is committed; a lost event only delays the export sweep.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", msg.Event,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
}
