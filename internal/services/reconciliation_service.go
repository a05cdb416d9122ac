package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// ReconciliationService confirms real-world balances against stored ones.
// It is the only path allowed to set a balance to an absolute value.
type ReconciliationService struct {
	store  ReconciliationStore
	events EventPublisher
}

func NewReconciliationService(store ReconciliationStore, events EventPublisher) *ReconciliationService {
	return &ReconciliationService{store: store, events: events}
}

// Reconcile records the user-confirmed actual balance. A zero difference
// just appends the audit row. A nonzero difference inserts an adjustment
// transaction into the log, force-sets the balance to the confirmed value
// and emits a consistency warning: from here on the balance intentionally
// diverges from a strict replay of the non-adjustment log. Editing or
// deleting the adjustment later reintroduces drift; that is an accepted
// limitation of the correction model, not something to patch silently.
func (s *ReconciliationService) Reconcile(ctx context.Context, accountID int64, actual core.Money, date core.Date, notes string) (core.Reconciliation, error) {
	if err := date.Validate(); err != nil {
		return core.Reconciliation{}, core.NewValidationError("invalid reconciliation date")
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return core.Reconciliation{}, err
	}

	rec, err := s.store.Reconcile(ctx, accountID, actual, date, notes)
	if err != nil {
		return core.Reconciliation{}, fmt.Errorf("reconcile account %d: %w", accountID, err)
	}

	if rec.Difference.Cents != 0 {
		warning := &core.ConsistencyWarning{
			AccountID:  accountID,
			Difference: rec.Difference,
		}
		slog.WarnContext(ctx, "Reconciliation diverged balance from log replay",
			"account_id", accountID,
			"difference_cents", rec.Difference.Cents,
			"adjustment_id", rec.AdjustmentID,
			"warning", warning.Error())

		if s.events != nil {
			msg := amqp.NewConsistencyWarningMessage(accountID, rec.Difference.Cents)
			if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to publish consistency warning",
					"account_id", accountID,
					"error", err)
			}
		}
	}

	return rec, nil
}

// History returns the account's append-only reconciliation trail.
func (s *ReconciliationService) History(ctx context.Context, accountID int64) ([]core.Reconciliation, error) {
	return s.store.ListReconciliations(ctx, accountID)
}
