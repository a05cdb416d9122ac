// Package http exposes the ledger as a JSON API. Handlers stay thin:
// they decode, call a service and encode, so every rule about balances
// and aggregates lives below this layer.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

type Server struct {
	http.Server

	ledger          *services.LedgerService
	rules           *services.RecurringProcessor
	reconciliations *services.ReconciliationService
	budgets         *services.BudgetService
	installments    *services.InstallmentService
	utilities       *services.UtilityService

	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	// Month transaction lists are cached briefly; summaries and budget
	// reports are recomputed on every request and never enter a cache.
	monthCache   *cache.LRUCache[[]core.Transaction]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

type Services struct {
	Ledger          *services.LedgerService
	Rules           *services.RecurringProcessor
	Reconciliations *services.ReconciliationService
	Budgets         *services.BudgetService
	Installments    *services.InstallmentService
	Utilities       *services.UtilityService
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svcs Services) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:          svcs.Ledger,
		rules:           svcs.Rules,
		reconciliations: svcs.Reconciliations,
		budgets:         svcs.Budgets,
		installments:    svcs.Installments,
		utilities:       svcs.Utilities,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:          trace.NewMiddleware(clientIP),
		monthCache:      cache.NewLRUCache[[]core.Transaction](100, 2*time.Minute),
		cacheManager:    cache.NewManager(),
	}

	s.cacheManager.Register(s.monthCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeactivateAccount)
	mux.HandleFunc("POST /api/accounts/{id}/reconcile", s.handleReconcile)
	mux.HandleFunc("GET /api/accounts/{id}/reconciliations", s.handleReconciliationHistory)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleMonthSummary)
	mux.HandleFunc("GET /api/summary/days", s.handleDayGroups)

	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("POST /api/rules/process", s.handleProcessRules)
	mux.HandleFunc("POST /api/rules/{id}/pause", s.handlePauseRule)
	mux.HandleFunc("POST /api/rules/{id}/resume", s.handleResumeRule)

	mux.HandleFunc("PUT /api/budgets", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/budgets/report", s.handleBudgetReport)

	mux.HandleFunc("POST /api/installments", s.handleCreateInstallment)
	mux.HandleFunc("GET /api/installments", s.handleListInstallments)
	mux.HandleFunc("GET /api/installments/{id}", s.handleGetInstallment)
	mux.HandleFunc("POST /api/installments/{id}/payments", s.handleInstallmentPayment)

	mux.HandleFunc("POST /api/meters", s.handleCreateMeter)
	mux.HandleFunc("GET /api/meters", s.handleListMeters)
	mux.HandleFunc("PUT /api/tariffs/electricity", s.handleSetTariff)
	mux.HandleFunc("POST /api/meters/{id}/bills", s.handleCreateBill)
	mux.HandleFunc("POST /api/meters/{id}/bills/preview", s.handlePreviewBill)
	mux.HandleFunc("GET /api/meters/{id}/bills", s.handleListBills)

	// Writes are rate limited per client; reads pass through.
	limited := s.rateLimiter.Middleware(clientIP, nil)
	s.Server.Handler = s.tracer.Middleware(onlyWrites(limited)(mux))

	return s
}

// onlyWrites applies the wrapped middleware to mutating methods only.
func onlyWrites(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				wrapped.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Shutdown stops background goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) monthKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateMonth(d core.Date) {
	if !d.IsEmpty() {
		s.monthCache.Delete(s.monthKey(d.Year(), d.Month()))
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
