package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// BudgetService maintains per-category monthly limits and derives the
// spend-versus-limit report.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// SetBudget creates or replaces the budget row for a category and period.
func (s *BudgetService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.NewValidationError("%s", err.Error())
	}
	return s.store.UpsertBudget(ctx, b)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	return s.store.DeleteBudget(ctx, id)
}

// Report loads the month's budgets and transactions once and rolls them
// up in memory; categories with spend but no budget row come back in the
// report's unbudgeted list so the UI can offer to create one.
func (s *BudgetService) Report(ctx context.Context, year, month int) (core.BudgetReport, error) {
	if month < 1 || month > 12 {
		return core.BudgetReport{}, core.NewValidationError("invalid month %d", month)
	}

	budgets, err := s.store.ListBudgetsForMonth(ctx, year, month)
	if err != nil {
		return core.BudgetReport{}, fmt.Errorf("budget report: %w", err)
	}
	transactions, err := s.store.ListTransactionsByMonth(ctx, year, month)
	if err != nil {
		return core.BudgetReport{}, fmt.Errorf("budget report: %w", err)
	}

	return core.BuildBudgetReport(year, month, budgets, transactions), nil
}
