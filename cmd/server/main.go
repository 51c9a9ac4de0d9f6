package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/goauction/internal/infrastructure/config"
	"github.com/iho/goauction/internal/infrastructure/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appLogger, prometheus.NewRegistry())
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server stopped with error")
		a.Close()
		os.Exit(1)
	}

	appLogger.Info().Msg("server stopped")
}
