package core

import "sort"

// BudgetState classifies a category's spend against its monthly limit.
type BudgetState string

const (
	BudgetSafe    BudgetState = "safe"
	BudgetWarning BudgetState = "warning"
	BudgetDanger  BudgetState = "danger"
)

// MonthSummary is the income/expense/net rollup for a calendar month.
// It is recomputed from the transaction log on every read, never stored.
type MonthSummary struct {
	Year    int
	Month   int
	Income  Money
	Expense Money
	Net     Money
}

// DayGroup is one calendar day's slice of a month, used by calendar views.
type DayGroup struct {
	Date         Date
	Transactions []Transaction
	Income       Money
	Expense      Money
}

// BudgetLine is one category's spend-versus-limit for a month.
type BudgetLine struct {
	Budget     Budget
	Spent      Money
	Percentage float64
	State      BudgetState
}

// CategorySpend reports spend in a category that has no budget row for the
// period, so callers can offer to create one.
type CategorySpend struct {
	CategoryID int64
	Spent      Money
}

// BudgetReport is the full per-month budget rollup.
type BudgetReport struct {
	Year       int
	Month      int
	Lines      []BudgetLine
	Unbudgeted []CategorySpend
}

// SummarizeMonth derives the month rollup by linear scan. Transfers move
// money between accounts and count as neither income nor expense.
func SummarizeMonth(year, month int, transactions []Transaction) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	for _, t := range transactions {
		switch t.Type {
		case Income:
			s.Income.Cents += t.Amount.Cents
		case Expense:
			s.Expense.Cents += t.Amount.Cents
		}
	}
	s.Net.Cents = s.Income.Cents - s.Expense.Cents
	return s
}

// GroupByDay buckets a month's transactions per calendar day, ordered by
// date ascending.
func GroupByDay(transactions []Transaction) []DayGroup {
	byDay := make(map[int64]*DayGroup)
	for _, t := range transactions {
		key := t.Date.Unix()
		g, ok := byDay[key]
		if !ok {
			g = &DayGroup{Date: t.Date}
			byDay[key] = g
		}
		g.Transactions = append(g.Transactions, t)
		switch t.Type {
		case Income:
			g.Income.Cents += t.Amount.Cents
		case Expense:
			g.Expense.Cents += t.Amount.Cents
		}
	}
	groups := make([]DayGroup, 0, len(byDay))
	for _, g := range byDay {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.Before(groups[j].Date.Time)
	})
	return groups
}

// BuildBudgetReport rolls up spend-versus-limit for a month from an
// already loaded transaction slice. Only expense rows count as spend.
// percentage is 0 when the limit is 0 so the division never explodes.
func BuildBudgetReport(year, month int, budgets []Budget, transactions []Transaction) BudgetReport {
	report := BudgetReport{Year: year, Month: month}

	spentByCategory := make(map[int64]int64)
	for _, t := range transactions {
		if t.Type != Expense || t.CategoryID == 0 {
			continue
		}
		spentByCategory[t.CategoryID] += t.Amount.Cents
	}

	budgeted := make(map[int64]bool)
	for _, b := range budgets {
		budgeted[b.CategoryID] = true
		spent := spentByCategory[b.CategoryID]
		line := BudgetLine{
			Budget: b,
			Spent:  Money{Cents: spent},
		}
		if b.Limit.Cents > 0 {
			line.Percentage = float64(spent) / float64(b.Limit.Cents) * 100
		}
		switch {
		case line.Percentage >= 100:
			line.State = BudgetDanger
		case line.Percentage >= 80:
			line.State = BudgetWarning
		default:
			line.State = BudgetSafe
		}
		report.Lines = append(report.Lines, line)
	}

	for categoryID, spent := range spentByCategory {
		if budgeted[categoryID] {
			continue
		}
		report.Unbudgeted = append(report.Unbudgeted, CategorySpend{
			CategoryID: categoryID,
			Spent:      Money{Cents: spent},
		})
	}
	sort.Slice(report.Unbudgeted, func(i, j int) bool {
		return report.Unbudgeted[i].CategoryID < report.Unbudgeted[j].CategoryID
	})
	return report
}
