// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/projection"
)

// LedgerAPI is the part of services.LedgerService the handlers use.
type LedgerAPI interface {
	Wallets(ctx context.Context) []core.Wallet
	CreateWallet(ctx context.Context, name, icon string) (core.Wallet, error)
	Wallet(ctx context.Context, id string) (core.WalletSummary, error)
	DeleteWallet(ctx context.Context, id string) (int, bool)
	CreateTransaction(ctx context.Context, walletID string, amount core.Amount, description string) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (core.Transaction, bool)
	Transactions(ctx context.Context, limit int) []core.Transaction
	WalletTransactions(ctx context.Context, walletID string) ([]core.Transaction, error)
	Dashboard(ctx context.Context) core.DashboardSummary
	Projection(ctx context.Context, b projection.Bucketing, walletID string) ([]projection.Point, error)
	Export(ctx context.Context) ([]byte, string, error)
	Import(ctx context.Context, data []byte) (ledger.Normalized, error)
	Clear(ctx context.Context) (int, int)
	Settings(ctx context.Context) core.Settings
	UpdateSettings(ctx context.Context, currency, theme *string) (core.Settings, error)
	Format(a core.Amount) string
}

// Pinger reports whether durable storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	svc     LedgerAPI
	ready   Pinger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	ips     *security.ClientIP
}

type ServerOption func(*Server)

// WithReadiness makes /readyz ping p.
func WithReadiness(p Pinger) ServerOption {
	return func(s *Server) { s.ready = p }
}

// WithRateLimit throttles mutating routes per client; nil disables it.
func WithRateLimit(l *ratelimit.Limiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

func NewServer(addr string, svc LedgerAPI, opts ...ServerOption) *Server {
	s := &Server{svc: svc, ips: security.NewClientIP()}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(s.ips.Extract)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	limited := s.limiter.Middleware(s.ips.Extract, func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later")
	})

	r.Route("/wallets", func(r chi.Router) {
		r.Get("/", s.handleListWallets)
		r.With(limited).Post("/", s.handleCreateWallet)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetWallet)
			r.With(limited).Delete("/", s.handleDeleteWallet)
			r.Get("/transactions", s.handleWalletTransactions)
			r.With(limited).Post("/transactions", s.handleCreateTransaction)
		})
	})
	r.Get("/transactions", s.handleListTransactions)
	r.With(limited).Delete("/transactions/{id}", s.handleDeleteTransaction)

	r.Get("/dashboard", s.handleDashboard)
	r.Get("/projection", s.handleProjection)

	r.Get("/export", s.handleExport)
	r.With(limited).Post("/import", s.handleImport)
	r.With(limited).Delete("/history", s.handleClear)

	r.Get("/settings", s.handleGetSettings)
	r.With(limited).Put("/settings", s.handleUpdateSettings)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, CodeInvalidInput, "method not allowed")
	})
	return r
}

// Metrics reports request counters collected by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.Metrics()
}
