package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/pricing"
)

// InstallmentService manages amortized loans: the monthly payment is
// computed once at creation and the remaining amount ratchets down with
// every recorded payment.
type InstallmentService struct {
	store  InstallmentStore
	ledger *LedgerService
}

// NewInstallmentService wires the store and, optionally, the ledger used
// to post payment expenses. A nil ledger records payments without posting.
func NewInstallmentService(store InstallmentStore, ledger *LedgerService) *InstallmentService {
	return &InstallmentService{store: store, ledger: ledger}
}

// Create computes the monthly payment from the principal, term and rate
// and stores the installment with the full amount still remaining.
func (s *InstallmentService) Create(ctx context.Context, i core.Installment) (core.Installment, error) {
	if err := i.Validate(); err != nil {
		return core.Installment{}, core.NewValidationError("%s", err.Error())
	}

	payment, err := pricing.MonthlyPayment(i.Total, i.TermMonths, i.AnnualRate)
	if err != nil {
		return core.Installment{}, core.NewValidationError("%s", err.Error())
	}
	i.MonthlyPayment = payment
	i.Remaining = i.Total
	i.Active = true

	return s.store.CreateInstallment(ctx, i)
}

func (s *InstallmentService) Get(ctx context.Context, id int64) (core.Installment, error) {
	return s.store.GetInstallment(ctx, id)
}

func (s *InstallmentService) List(ctx context.Context, includeInactive bool) ([]core.Installment, error) {
	return s.store.ListInstallments(ctx, includeInactive)
}

// RecordPayment decrements the remaining amount (clamped at zero,
// deactivating on zero) and, when an account is given, posts the payment
// as an expense through the ledger so the balance moves normally.
func (s *InstallmentService) RecordPayment(ctx context.Context, id int64, amount core.Money, accountID, categoryID int64, date core.Date) (core.Installment, error) {
	if err := amount.Validate(); err != nil {
		return core.Installment{}, core.NewValidationError("%s", err.Error())
	}

	updated, err := s.store.RecordInstallmentPayment(ctx, id, amount.Cents)
	if err != nil {
		return core.Installment{}, fmt.Errorf("record installment payment: %w", err)
	}

	if accountID != 0 && s.ledger != nil {
		_, err := s.ledger.CreateTransaction(ctx, core.Transaction{
			Type:        core.Expense,
			Amount:      amount,
			AccountID:   accountID,
			CategoryID:  categoryID,
			Date:        date,
			Description: fmt.Sprintf("Installment payment: %s", updated.Name),
		})
		if err != nil {
			// The installment is already decremented; surface the posting
			// failure so the caller can retry the expense on its own.
			slog.ErrorContext(ctx, "Installment decremented but expense posting failed",
				"installment_id", id,
				"account_id", accountID,
				"error", err)
			return updated, fmt.Errorf("post installment expense: %w", err)
		}
	}

	return updated, nil
}
