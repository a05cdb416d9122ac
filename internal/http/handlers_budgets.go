package http

import (
	"net/http"

	"bilancio/internal/core"
)

type budgetRequest struct {
	CategoryID int64  `json:"category_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Limit      string `json:"limit"`
}

type budgetResponse struct {
	ID         int64 `json:"id"`
	CategoryID int64 `json:"category_id"`
	Month      int   `json:"month"`
	Year       int   `json:"year"`
	LimitCents int64 `json:"limit_cents"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := parseAmount(req.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	budget, err := s.budgets.SetBudget(r.Context(), core.Budget{
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{
		ID:         budget.ID,
		CategoryID: budget.CategoryID,
		Month:      budget.Month,
		Year:       budget.Year,
		LimitCents: budget.Limit.Cents,
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budgets.DeleteBudget(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type budgetLineResponse struct {
	CategoryID int64   `json:"category_id"`
	LimitCents int64   `json:"limit_cents"`
	SpentCents int64   `json:"spent_cents"`
	Percentage float64 `json:"percentage"`
	State      string  `json:"state"`
}

type unbudgetedResponse struct {
	CategoryID int64 `json:"category_id"`
	SpentCents int64 `json:"spent_cents"`
}

type budgetReportResponse struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Lines      []budgetLineResponse `json:"lines"`
	Unbudgeted []unbudgetedResponse `json:"unbudgeted"`
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.budgets.Report(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := budgetReportResponse{
		Year:       report.Year,
		Month:      report.Month,
		Lines:      make([]budgetLineResponse, 0, len(report.Lines)),
		Unbudgeted: make([]unbudgetedResponse, 0, len(report.Unbudgeted)),
	}
	for _, line := range report.Lines {
		resp.Lines = append(resp.Lines, budgetLineResponse{
			CategoryID: line.Budget.CategoryID,
			LimitCents: line.Budget.Limit.Cents,
			SpentCents: line.Spent.Cents,
			Percentage: line.Percentage,
			State:      string(line.State),
		})
	}
	for _, u := range report.Unbudgeted {
		resp.Unbudgeted = append(resp.Unbudgeted, unbudgetedResponse{
			CategoryID: u.CategoryID,
			SpentCents: u.Spent.Cents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
