package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/goauction/internal/adapter/http/handler"
	"github.com/iho/goauction/internal/adapter/http/middleware"
	"github.com/iho/goauction/internal/infrastructure/metrics"
	"github.com/iho/goauction/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuctionHandler *handler.AuctionHandler
	BidHandler     *handler.BidHandler
	WalletHandler  *handler.WalletHandler
	LedgerHandler  *handler.LedgerHandler
	HealthHandler  *handler.HealthHandler

	Logger zerolog.Logger

	// Metrics and Gatherer are optional; /metrics is served when Gatherer is set.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// TokenVerifier enables bearer token identity. When nil the X-User-ID
	// header is trusted.
	TokenVerifier middleware.TokenVerifier

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	RateLimiter *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	r.Use(middleware.NewIdentityMiddleware(cfg.TokenVerifier, cfg.Metrics).Wrap)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger, cfg.Metrics)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Auctions
		r.Route("/auctions", func(r chi.Router) {
			r.Post("/", cfg.AuctionHandler.Create)
			r.Get("/", cfg.AuctionHandler.List)
			r.Get("/{id}", cfg.AuctionHandler.Get)
			r.Post("/{id}/bids", cfg.BidHandler.Place)
			r.Post("/{id}/settle", cfg.BidHandler.Settle)
		})

		// Caller scoped reads and wallet
		r.Route("/me", func(r chi.Router) {
			r.Get("/bids", cfg.AuctionHandler.ListMyBids)
			r.Get("/auctions", cfg.AuctionHandler.ListMine)
			r.Get("/wallet", cfg.WalletHandler.Get)
			r.Get("/wallet/transactions", cfg.WalletHandler.ListTransactions)
			r.Post("/wallet/deposits", cfg.WalletHandler.Deposit)
		})

		r.Post("/verifications", cfg.AuctionHandler.Verify)
		r.Get("/ledger/consistency", cfg.LedgerHandler.Consistency)
	})

	return r
}
