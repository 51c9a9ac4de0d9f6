package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/goauction/internal/adapter/http"
	"github.com/iho/goauction/internal/adapter/http/handler"
	"github.com/iho/goauction/internal/adapter/http/middleware"
	"github.com/iho/goauction/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/goauction/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goauction/internal/adapter/repository/redis"
	"github.com/iho/goauction/internal/infrastructure/auth"
	"github.com/iho/goauction/internal/infrastructure/config"
	"github.com/iho/goauction/internal/infrastructure/eventpublisher"
	"github.com/iho/goauction/internal/infrastructure/metrics"
	"github.com/iho/goauction/internal/infrastructure/postgres"
	"github.com/iho/goauction/internal/infrastructure/redis"
	"github.com/iho/goauction/internal/infrastructure/settlement"
	"github.com/iho/goauction/internal/infrastructure/verification"
	"github.com/iho/goauction/internal/usecase"
)

const (
	outboxRetention     = 7 * 24 * time.Hour
	limiterCleanupEvery = time.Minute
	limiterMaxIdle      = 10 * time.Minute
)

// repositories is the storage backend selected by STORAGE_DRIVER.
type repositories struct {
	txManager   usecase.TransactionManager
	retrier     usecase.Retrier
	auctions    usecase.AuctionRepository
	bids        usecase.BidRepository
	wallets     usecase.WalletRepository
	walletTxns  usecase.WalletTransactionRepository
	ledger      usecase.LedgerRepository
	outbox      usecase.OutboxRepository
	healthCheck *handler.HealthCheck
	close       func()
}

// app is the fully wired server: HTTP handler plus background workers.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	handler     http.Handler
	sweeper     *settlement.Sweeper
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repos.close)

	m := metrics.NewWithRegisterer(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	idGen := postgresRepo.NewULIDGenerator()
	clock := usecase.SystemClock{}
	ledger := usecase.NewLedger(repos.wallets, repos.walletTxns, idGen)

	var auctionOpts []usecase.AuctionOption
	if cfg.VerificationURL != "" {
		auctionOpts = append(auctionOpts, usecase.WithVerifier(
			verification.NewHTTPVerifier(cfg.VerificationURL, cfg.VerificationTimeout),
			cfg.RequireVerification,
		))
	} else {
		auctionOpts = append(auctionOpts, usecase.WithVerifier(verification.NewApproveAll(), false))
	}

	auctionUC := usecase.NewAuctionUseCase(repos.txManager, repos.auctions, repos.bids, repos.outbox, idGen, clock, logger, m, auctionOpts...)
	biddingUC := usecase.NewBiddingUseCase(repos.txManager, repos.retrier, ledger, repos.auctions, repos.bids, repos.outbox, idGen, clock, cfg.CollateralRatio, logger, m)
	settlementUC := usecase.NewSettlementUseCase(repos.txManager, repos.retrier, ledger, repos.auctions, repos.bids, repos.outbox, idGen, clock, cfg.CollateralRatio, logger, m)
	walletUC := usecase.NewWalletUseCase(repos.txManager, repos.retrier, ledger, repos.wallets, repos.walletTxns, clock, logger, m)
	reconciliationUC := usecase.NewReconciliationUseCase(repos.ledger, clock, logger)

	var checks []handler.HealthCheck
	if repos.healthCheck != nil {
		checks = append(checks, *repos.healthCheck)
	}

	var idempotencyStore usecase.IdempotencyStore
	if cfg.IdempotencyEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: redisPing(client)})
		logger.Info().Msg("connected to redis")
	}

	var tokenVerifier middleware.TokenVerifier
	if cfg.AuthEnabled {
		tokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		logger.Warn().Msg("authentication disabled, trusting X-User-ID header")
	}

	a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuctionHandler:   handler.NewAuctionHandler(auctionUC),
		BidHandler:       handler.NewBidHandler(biddingUC, settlementUC),
		WalletHandler:    handler.NewWalletHandler(walletUC),
		LedgerHandler:    handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:    handler.NewHealthHandler(checks...),
		Logger:           logger,
		Metrics:          m,
		Gatherer:         reg,
		TokenVerifier:    tokenVerifier,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.rateLimiter,
	})

	a.sweeper = settlement.NewSweeper(settlement.Config{
		Settler:   settlementUC,
		Logger:    logger,
		BatchSize: cfg.SettlementBatchSize,
		Interval:  cfg.SettlementInterval,
	})

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: repos.outbox,
		Publisher:  eventpublisher.NewLogPublisher(logger),
		Clock:      clock,
		Logger:     logger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  outboxRetention,
	})

	return a, nil
}

func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repositories, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		return &repositories{
			txManager:  store,
			auctions:   memory.NewAuctionRepository(store),
			bids:       memory.NewBidRepository(store),
			wallets:    memory.NewWalletRepository(store),
			walletTxns: memory.NewWalletTransactionRepository(store),
			ledger:     memory.NewLedgerRepository(store),
			outbox:     memory.NewOutboxRepository(store),
			close:      func() {},
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	return &repositories{
		txManager:   postgresRepo.NewTxManager(pool),
		retrier:     postgresRepo.NewRetrier(logger),
		auctions:    postgresRepo.NewAuctionRepository(pool),
		bids:        postgresRepo.NewBidRepository(pool),
		wallets:     postgresRepo.NewWalletRepository(pool),
		walletTxns:  postgresRepo.NewWalletTransactionRepository(pool),
		ledger:      postgresRepo.NewLedgerRepository(pool),
		outbox:      postgresRepo.NewOutboxRepository(pool),
		healthCheck: &handler.HealthCheck{Name: "postgres", Check: pool.Ping},
		close:       pool.Close,
	}, nil
}

func redisPing(client *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// Run serves HTTP and runs the workers until ctx is cancelled, then shuts
// everything down within the configured timeout.
func (a *app) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + a.cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
		IdleTimeout:  a.cfg.HTTPIdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("port", a.cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error { return ignoreCanceled(a.sweeper.Start(ctx)) })
	g.Go(func() error { return ignoreCanceled(a.publisher.Start(ctx)) })
	g.Go(func() error {
		a.rateLimiter.RunCleanup(ctx, limiterCleanupEvery, limiterMaxIdle)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases storage and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
