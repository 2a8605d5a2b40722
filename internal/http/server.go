// Package http exposes the operations console as a JSON API: installment
// plans, the transaction ledger, payment reconciliation, and reports.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tutorops/internal/ledger"
	applog "tutorops/internal/log"
	"tutorops/internal/middleware/ratelimit"
	"tutorops/internal/middleware/security"
	"tutorops/internal/middleware/trace"
	"tutorops/internal/plan"
	"tutorops/internal/report"
	"tutorops/internal/services"
)

type Server struct {
	http.Server

	plans   *plan.Store
	ledger  *ledger.Ledger
	recon   *services.ReconciliationService
	reports *report.Engine

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, plans *plan.Store, lgr *ledger.Ledger, recon *services.ReconciliationService, reports *report.Engine) *Server {
	mux := http.NewServeMux()

	s := &Server{
		plans:   plans,
		ledger:  lgr,
		recon:   recon,
		reports: reports,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/students", s.handleListStudents)
	mux.HandleFunc("GET /api/students/{id}", s.handleGetStudent)
	mux.HandleFunc("GET /api/students/{id}/installments", s.handleListInstallments)
	mux.HandleFunc("PATCH /api/students/{id}/installments/{number}", s.handleEditInstallment)
	mux.HandleFunc("POST /api/students/{id}/installments/{number}/payment", s.handleLogPayment)
	mux.HandleFunc("DELETE /api/students/{id}/installments/{number}/payment", s.handleReversePayment)

	mux.HandleFunc("POST /api/income", s.handleLogIncome)
	mux.HandleFunc("POST /api/expenses", s.handleLogExpense)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/reports/dashboard", s.handleDashboard)

	httpLogger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	tracer := trace.NewMiddleware(httpLogger, clientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(clientIP, nil)

	handler := tracer.Middleware(headers.Middleware(limited(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// clientIP resolves the caller's address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
