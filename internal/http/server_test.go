package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// ledgerStore is a minimal in-memory services.LedgerStore for handler
// tests.
type ledgerStore struct {
	accounts     map[int64]core.Account
	transactions map[int64]core.Transaction
	nextID       int64
}

func newLedgerStore() *ledgerStore {
	return &ledgerStore{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		nextID:       1,
	}
}

func (s *ledgerStore) apply(effects []core.Effect) error {
	for _, e := range effects {
		a, ok := s.accounts[e.AccountID]
		if !ok {
			return &core.NotFoundError{Entity: "account", ID: e.AccountID}
		}
		a.Balance.Cents += e.Delta
		s.accounts[e.AccountID] = a
	}
	return nil
}

func (s *ledgerStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = s.nextID
	s.nextID++
	s.accounts[a.ID] = a
	return a, nil
}

func (s *ledgerStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	return a, nil
}

func (s *ledgerStore) ListAccounts(_ context.Context, includeInactive bool) ([]core.Account, error) {
	var out []core.Account
	for _, a := range s.accounts {
		if a.Active || includeInactive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *ledgerStore) DeactivateAccount(_ context.Context, id int64) error {
	a, ok := s.accounts[id]
	if !ok {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	a.Active = false
	s.accounts[id] = a
	return nil
}

func (s *ledgerStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Origin == "" {
		t.Origin = core.OriginUser
	}
	t.ID = s.nextID
	s.nextID++
	effects, err := t.Effects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.apply(effects); err != nil {
		return core.Transaction{}, err
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *ledgerStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, nil
}

func (s *ledgerStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	old, ok := s.transactions[t.ID]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: t.ID}
	}
	reverse, _ := old.ReverseEffects()
	if err := s.apply(reverse); err != nil {
		return core.Transaction{}, err
	}
	t.Origin = old.Origin
	t.RuleID = old.RuleID
	forward, _ := t.Effects()
	if err := s.apply(forward); err != nil {
		return core.Transaction{}, err
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *ledgerStore) DeleteTransaction(_ context.Context, id int64) error {
	t, ok := s.transactions[id]
	if !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	reverse, _ := t.ReverseEffects()
	if err := s.apply(reverse); err != nil {
		return err
	}
	delete(s.transactions, id)
	return nil
}

func (s *ledgerStore) ListTransactionsByWindow(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range s.transactions {
		if !t.Date.Before(from.Time) && t.Date.Before(to.Time) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *ledgerStore) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	return s.ListTransactionsByWindow(ctx, from, core.DateOf(from.AddDate(0, 1, 0)))
}

func (s *ledgerStore) SumEffectsForAccount(_ context.Context, accountID int64) (int64, error) {
	var sum int64
	for _, t := range s.transactions {
		effects, _ := t.Effects()
		for _, e := range effects {
			if e.AccountID == accountID {
				sum += e.Delta
			}
		}
	}
	return sum, nil
}

func newTestServer() (*Server, *ledgerStore) {
	store := newLedgerStore()
	ledger := services.NewLedgerService(store, nil)
	srv := NewServer(":0", Services{Ledger: ledger})
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestCreateAccountAndTransaction(t *testing.T) {
	srv, store := newTestServer()
	defer srv.Shutdown(context.Background())

	rec := doRequest(t, srv, http.MethodPost, "/api/accounts", accountRequest{
		Name:         "Main",
		Currency:     "EUR",
		BalanceCents: 100000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account = %d, body %s", rec.Code, rec.Body.String())
	}
	var account accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Type:        "expense",
		Amount:      "43.50",
		AccountID:   account.ID,
		Date:        "2025-06-10",
		Description: "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction = %d, body %s", rec.Code, rec.Body.String())
	}
	var tx transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.AmountCents != 4350 {
		t.Errorf("amount = %d, want 4350", tx.AmountCents)
	}
	if tx.Origin != "user" {
		t.Errorf("origin = %q, want user", tx.Origin)
	}

	got := store.accounts[account.ID]
	if got.Balance.Cents != 100000-4350 {
		t.Errorf("balance = %d, want %d", got.Balance.Cents, 100000-4350)
	}
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	rec := doRequest(t, srv, http.MethodPost, "/api/accounts", accountRequest{Name: "Main", Currency: "EUR"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account = %d", rec.Code)
	}

	tests := []struct {
		name string
		req  transactionRequest
	}{
		{"bad amount", transactionRequest{Type: "expense", Amount: "-5", AccountID: 1, Date: "2025-06-10"}},
		{"bad date", transactionRequest{Type: "expense", Amount: "5.00", AccountID: 1, Date: "June 10"}},
		{"bad type", transactionRequest{Type: "loan", Amount: "5.00", AccountID: 1, Date: "2025-06-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/transactions", tt.req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetMissingTransactionReturns404(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	rec := doRequest(t, srv, http.MethodGet, "/api/transactions/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMonthSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	doRequest(t, srv, http.MethodPost, "/api/accounts", accountRequest{Name: "Main", Currency: "EUR"})
	doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "income", Amount: "1000.00", AccountID: 1, Date: "2025-06-01", Description: "salary",
	})
	doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Type: "expense", Amount: "250.00", AccountID: 1, Date: "2025-06-15", Description: "bills",
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/summary?year=2025&month=6", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary monthSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.IncomeCents != 100000 || summary.ExpenseCents != 25000 || summary.NetCents != 75000 {
		t.Errorf("summary = %+v, want 100000/25000/75000", summary)
	}
}
