package http

import (
	"net/http"
	"strings"

	"bilancio/internal/core"
)

type accountRequest struct {
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	BalanceCents int64  `json:"balance_cents"`
}

type accountResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	BalanceCents int64  `json:"balance_cents"`
	Active       bool   `json:"active"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Currency:     a.Currency,
		BalanceCents: a.Balance.Cents,
		Active:       a.Active,
	}
}

type transactionRequest struct {
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	AccountID     int64  `json:"account_id"`
	DestinationID int64  `json:"destination_id,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
	Date          string `json:"date"`
	Description   string `json:"description"`
}

type transactionResponse struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	AmountCents   int64  `json:"amount_cents"`
	AccountID     int64  `json:"account_id"`
	DestinationID int64  `json:"destination_id,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Origin        string `json:"origin"`
	RuleID        int64  `json:"rule_id,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		AmountCents:   t.Amount.Cents,
		AccountID:     t.AccountID,
		DestinationID: t.DestinationID,
		CategoryID:    t.CategoryID,
		Date:          formatDate(t.Date),
		Description:   t.Description,
		Origin:        string(t.Origin),
		RuleID:        t.RuleID,
	}
}

func (req transactionRequest) toDomain() (core.Transaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:          core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:        amount,
		AccountID:     req.AccountID,
		DestinationID: req.DestinationID,
		CategoryID:    req.CategoryID,
		Date:          date,
		Description:   strings.TrimSpace(req.Description),
	}, nil
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), core.Account{
		Name:     strings.TrimSpace(req.Name),
		Currency: strings.TrimSpace(req.Currency),
		Balance:  core.Money{Cents: req.BalanceCents},
		Active:   true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	accounts, err := s.ledger.ListAccounts(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeactivateAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(created.Date)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx.ID = id

	// The old date's month goes stale too when the edit moves the row.
	if old, err := s.ledger.GetTransaction(r.Context(), id); err == nil {
		s.invalidateMonth(old.Date)
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(updated.Date)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if old, err := s.ledger.GetTransaction(r.Context(), id); err == nil {
		s.invalidateMonth(old.Date)
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := s.monthKey(year, month)
	transactions, found := s.monthCache.Get(key)
	if !found {
		transactions, err = s.ledger.ListTransactionsByMonth(r.Context(), year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.monthCache.Set(key, transactions)
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type monthSummaryResponse struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	NetCents     int64 `json:"net_cents"`
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.MonthSummary(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthSummaryResponse{
		Year:         summary.Year,
		Month:        summary.Month,
		IncomeCents:  summary.Income.Cents,
		ExpenseCents: summary.Expense.Cents,
		NetCents:     summary.Net.Cents,
	})
}

type dayGroupResponse struct {
	Date         string                `json:"date"`
	IncomeCents  int64                 `json:"income_cents"`
	ExpenseCents int64                 `json:"expense_cents"`
	Transactions []transactionResponse `json:"transactions"`
}

func (s *Server) handleDayGroups(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := s.ledger.DayGroups(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]dayGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp := dayGroupResponse{
			Date:         formatDate(g.Date),
			IncomeCents:  g.Income.Cents,
			ExpenseCents: g.Expense.Cents,
		}
		for _, t := range g.Transactions {
			resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}
