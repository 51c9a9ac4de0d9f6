package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/adapter/http/handler"
	apimiddleware "github.com/iho/goauction/internal/adapter/http/middleware"
	"github.com/iho/goauction/internal/adapter/repository/memory"
	"github.com/iho/goauction/internal/adapter/repository/postgres"
	"github.com/iho/goauction/internal/infrastructure/auth"
	"github.com/iho/goauction/internal/infrastructure/metrics"
	"github.com/iho/goauction/internal/usecase"
)

// newRouterConfig wires the real use cases over the in-memory store.
func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	store := memory.NewStore()
	ids := postgres.NewULIDGenerator()
	clock := usecase.SystemClock{}
	logger := zerolog.New(io.Discard)
	ratio := decimal.RequireFromString(usecase.DefaultCollateralRatio)

	auctionRepo := memory.NewAuctionRepository(store)
	bidRepo := memory.NewBidRepository(store)
	walletRepo := memory.NewWalletRepository(store)
	txnRepo := memory.NewWalletTransactionRepository(store)
	outbox := memory.NewOutboxRepository(store)
	ledger := usecase.NewLedger(walletRepo, txnRepo, ids)

	auctions := usecase.NewAuctionUseCase(store, auctionRepo, bidRepo, outbox, ids, clock, logger, nil)
	bidding := usecase.NewBiddingUseCase(store, nil, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil)
	settlement := usecase.NewSettlementUseCase(store, nil, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil)
	wallets := usecase.NewWalletUseCase(store, nil, ledger, walletRepo, txnRepo, clock, logger, nil)
	recon := usecase.NewReconciliationUseCase(memory.NewLedgerRepository(store), clock, logger)

	cfg := RouterConfig{
		AuctionHandler: handler.NewAuctionHandler(auctions),
		BidHandler:     handler.NewBidHandler(bidding, settlement),
		WalletHandler:  handler.NewWalletHandler(wallets),
		LedgerHandler:  handler.NewLedgerHandler(recon),
		HealthHandler:  handler.NewHealthHandler(),
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(apimiddleware.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := do(t, router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(1, 1, nil)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Routes)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	want := map[string]bool{
		"POST /api/v1/auctions/":             false,
		"GET /api/v1/auctions/":              false,
		"GET /api/v1/auctions/{id}":          false,
		"POST /api/v1/auctions/{id}/bids":    false,
		"POST /api/v1/auctions/{id}/settle":  false,
		"GET /api/v1/me/bids":                false,
		"GET /api/v1/me/auctions":            false,
		"GET /api/v1/me/wallet":              false,
		"GET /api/v1/me/wallet/transactions": false,
		"POST /api/v1/me/wallet/deposits":    false,
		"POST /api/v1/verifications":         false,
		"GET /api/v1/ledger/consistency":     false,
		"GET /health":                        false,
		"GET /ready":                         false,
	}

	err := chi.Walk(chiRoutes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := method + " " + route
		if _, ok := want[key]; ok {
			want[key] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestNewRouter_AuctionLifecycle(t *testing.T) {
	router := NewRouter(newRouterConfig())

	for _, user := range []string{"bob", "carol"} {
		if rec := do(t, router, http.MethodPost, "/api/v1/me/wallet/deposits", user, `{"amount": "100"}`); rec.Code != http.StatusCreated {
			t.Fatalf("deposit for %s failed: %d %s", user, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, router, http.MethodPost, "/api/v1/auctions", "alice", `{
		"title": "Lamp", "description": "Brass desk lamp", "category": "home",
		"condition": "GOOD", "media": {"kind": "image", "images": ["lamp.jpg"]},
		"starting_price": "10", "duration": {"value": 1, "unit": "days"}
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	var auction dto.AuctionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &auction); err != nil {
		t.Fatalf("decode auction: %v", err)
	}

	bidPath := "/api/v1/auctions/" + auction.ID + "/bids"
	if rec := do(t, router, http.MethodPost, bidPath, "carol", `{"amount": 50}`); rec.Code != http.StatusCreated {
		t.Fatalf("carol bid failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPost, bidPath, "bob", `{"amount": 50}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected equal bid to be rejected with 422, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, bidPath, "bob", `{"amount": 60}`); rec.Code != http.StatusCreated {
		t.Fatalf("bob bid failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPost, bidPath, "alice", `{"amount": 70}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected self bid to be rejected with 422, got %d", rec.Code)
	}

	settlePath := "/api/v1/auctions/" + auction.ID + "/settle"
	if rec := do(t, router, http.MethodPost, settlePath, "bob", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-seller settle to be 403, got %d", rec.Code)
	}
	rec = do(t, router, http.MethodPost, settlePath, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("settle failed: %d %s", rec.Code, rec.Body.String())
	}
	var settled dto.SettlementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &settled); err != nil {
		t.Fatalf("decode settlement: %v", err)
	}
	if settled.Auction.WinnerID == nil || *settled.Auction.WinnerID != "bob" || len(settled.Refunds) != 1 {
		t.Fatalf("unexpected settlement %+v", settled)
	}
	if rec := do(t, router, http.MethodPost, settlePath, "alice", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected second settle to be 409, got %d", rec.Code)
	}

	// carol got her 25 back; bob keeps 30 reserved.
	wallets := map[string]string{"carol": "100", "bob": "70"}
	for user, want := range wallets {
		rec := do(t, router, http.MethodGet, "/api/v1/me/wallet", user, "")
		var wallet dto.WalletResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &wallet); err != nil {
			t.Fatalf("decode wallet: %v", err)
		}
		if !wallet.Balance.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("expected %s balance %s, got %s", user, want, wallet.Balance)
		}
	}

	rec = do(t, router, http.MethodGet, "/api/v1/ledger/consistency", "", "")
	var report dto.ReconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Consistent || report.WalletsChecked != 2 {
		t.Fatalf("expected consistent ledger, got %+v", report)
	}
}

func TestNewRouter_AnonymousMutationIsUnauthorized(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := do(t, router, http.MethodPost, "/api/v1/me/wallet/deposits", "", `{"amount": "10"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNewRouter_TokenIdentity(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.TokenVerifier = manager
	}))

	token, err := manager.Generate("bob", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/wallet/deposits", strings.NewReader(`{"amount": "5"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var txn dto.WalletTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &txn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusCreated || txn.UserID != "bob" {
		t.Fatalf("expected deposit for bob, got %d %+v", rec.Code, txn)
	}

	// The development header is ignored once tokens are required.
	if rec := do(t, router, http.MethodGet, "/api/v1/me/wallet", "bob", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for header identity, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = metrics.NewWithRegisterer(reg)
		cfg.Gatherer = reg
	}))

	do(t, router, http.MethodGet, "/health", "", "")
	rec := do(t, router, http.MethodGet, "/metrics", "", "")

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `goauction_http_requests_total{method="GET",path="/health",status="200"} 1`) {
		t.Fatalf("expected request metric in /metrics output, got %d %s", rec.Code, rec.Body.String())
	}
}
