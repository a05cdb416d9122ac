package http

import (
	"net/http"
	"strings"
	"time"

	"bilancio/internal/core"
)

type ruleRequest struct {
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	AccountID     int64  `json:"account_id"`
	DestinationID int64  `json:"destination_id,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
	Description   string `json:"description"`
	Every         string `json:"every"`
	NextDate      string `json:"next_date"`
}

type ruleResponse struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	AmountCents   int64  `json:"amount_cents"`
	AccountID     int64  `json:"account_id"`
	DestinationID int64  `json:"destination_id,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
	Description   string `json:"description"`
	Every         string `json:"every"`
	NextDate      string `json:"next_date"`
	LastGenerated string `json:"last_generated,omitempty"`
	Active        bool   `json:"active"`
}

func toRuleResponse(rule core.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:            rule.ID,
		Type:          string(rule.Type),
		AmountCents:   rule.Amount.Cents,
		AccountID:     rule.AccountID,
		DestinationID: rule.DestinationID,
		CategoryID:    rule.CategoryID,
		Description:   rule.Description,
		Every:         string(rule.Every),
		NextDate:      formatDate(rule.NextDate),
		LastGenerated: formatDate(rule.LastGenerated),
		Active:        rule.Active,
	}
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	nextDate, err := parseDate(req.NextDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.rules.CreateRule(r.Context(), core.RecurringRule{
		Type:          core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:        amount,
		AccountID:     req.AccountID,
		DestinationID: req.DestinationID,
		CategoryID:    req.CategoryID,
		Description:   strings.TrimSpace(req.Description),
		Every:         core.RepetitionType(strings.ToLower(strings.TrimSpace(req.Every))),
		NextDate:      nextDate,
		Active:        true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(created))
}

type processResponse struct {
	TransactionsCreated int `json:"transactions_created"`
}

// handleProcessRules triggers due-rule materialization on demand, in
// addition to the worker's schedule. An as_of date lets operators
// process up to a point in the past.
func (s *Server) handleProcessRules(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if v := strings.TrimSpace(r.URL.Query().Get("as_of")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		asOf = d.Time
	}

	created, err := s.rules.ProcessDue(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{TransactionsCreated: created})
}

func (s *Server) handlePauseRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.rules.PauseRule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleResumeRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.rules.ResumeRule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
