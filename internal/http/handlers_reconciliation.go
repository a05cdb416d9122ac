package http

import (
	"net/http"
	"strings"

	"bilancio/internal/core"
)

type reconcileRequest struct {
	ActualBalanceCents int64  `json:"actual_balance_cents"`
	Date               string `json:"date"`
	Notes              string `json:"notes,omitempty"`
}

type reconciliationResponse struct {
	ID              int64  `json:"id"`
	AccountID       int64  `json:"account_id"`
	Date            string `json:"date"`
	SystemCents     int64  `json:"system_cents"`
	ActualCents     int64  `json:"actual_cents"`
	DifferenceCents int64  `json:"difference_cents"`
	AdjustmentID    int64  `json:"adjustment_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func toReconciliationResponse(rec core.Reconciliation) reconciliationResponse {
	return reconciliationResponse{
		ID:              rec.ID,
		AccountID:       rec.AccountID,
		Date:            formatDate(rec.Date),
		SystemCents:     rec.System.Cents,
		ActualCents:     rec.Actual.Cents,
		DifferenceCents: rec.Difference.Cents,
		AdjustmentID:    rec.AdjustmentID,
		Notes:           rec.Notes,
	}
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.reconciliations.Reconcile(r.Context(), id,
		core.Money{Cents: req.ActualBalanceCents}, date, strings.TrimSpace(req.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// An adjustment lands in the reconciliation month's log.
	s.invalidateMonth(date)
	writeJSON(w, http.StatusCreated, toReconciliationResponse(rec))
}

func (s *Server) handleReconciliationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.reconciliations.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]reconciliationResponse, 0, len(history))
	for _, rec := range history {
		out = append(out, toReconciliationResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
