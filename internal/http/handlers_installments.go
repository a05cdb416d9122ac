package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

type installmentRequest struct {
	Name       string `json:"name"`
	Total      string `json:"total"`
	TermMonths int    `json:"term_months"`
	AnnualRate string `json:"annual_rate,omitempty"`
}

type installmentResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	TotalCents          int64  `json:"total_cents"`
	TermMonths          int    `json:"term_months"`
	AnnualRate          string `json:"annual_rate"`
	MonthlyPaymentCents int64  `json:"monthly_payment_cents"`
	RemainingCents      int64  `json:"remaining_cents"`
	Active              bool   `json:"active"`
}

func toInstallmentResponse(i core.Installment) installmentResponse {
	return installmentResponse{
		ID:                  i.ID,
		Name:                i.Name,
		TotalCents:          i.Total.Cents,
		TermMonths:          i.TermMonths,
		AnnualRate:          i.AnnualRate.String(),
		MonthlyPaymentCents: i.MonthlyPayment.Cents,
		RemainingCents:      i.Remaining.Cents,
		Active:              i.Active,
	}
}

func (s *Server) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	total, err := parseAmount(req.Total)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rate := decimal.Zero
	if v := strings.TrimSpace(req.AnnualRate); v != "" {
		rate, err = decimal.NewFromString(v)
		if err != nil {
			writeError(w, r, core.NewValidationError("invalid annual rate '%s'", v))
			return
		}
	}

	created, err := s.installments.Create(r.Context(), core.Installment{
		Name:       strings.TrimSpace(req.Name),
		Total:      total,
		TermMonths: req.TermMonths,
		AnnualRate: rate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstallmentResponse(created))
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	installments, err := s.installments.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]installmentResponse, 0, len(installments))
	for _, i := range installments {
		out = append(out, toInstallmentResponse(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	installment, err := s.installments.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(installment))
}

type paymentRequest struct {
	Amount     string `json:"amount"`
	AccountID  int64  `json:"account_id,omitempty"`
	CategoryID int64  `json:"category_id,omitempty"`
	Date       string `json:"date"`
}

func (s *Server) handleInstallmentPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.installments.RecordPayment(r.Context(), id, amount, req.AccountID, req.CategoryID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.AccountID != 0 {
		s.invalidateMonth(date)
	}
	writeJSON(w, http.StatusOK, toInstallmentResponse(updated))
}
