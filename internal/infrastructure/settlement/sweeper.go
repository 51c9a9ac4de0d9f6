package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goauction/internal/usecase"
)

// Settler closes auctions whose end time has passed.
type Settler interface {
	SettleDue(ctx context.Context, limit int, skip []string) (usecase.DueBatch, error)
}

// Config for Sweeper.
type Config struct {
	Settler   Settler
	Logger    zerolog.Logger
	BatchSize int           // Auctions settled per pass
	Interval  time.Duration // Polling interval
}

// Sweeper periodically settles expired auctions with the system trigger.
type Sweeper struct {
	settler   Settler
	logger    zerolog.Logger
	batchSize int
	interval  time.Duration
}

// NewSweeper creates a new Sweeper.
func NewSweeper(cfg Config) *Sweeper {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &Sweeper{
		settler:   cfg.Settler,
		logger:    cfg.Logger.With().Str("component", "settlement_sweeper").Logger(),
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
	}
}

// Start runs the sweeper until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Int("batch_size", s.batchSize).
		Dur("interval", s.interval).
		Msg("settlement sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("settlement sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep attempts full batches back to back until the backlog is drained.
// Auctions that fail are left out of the rest of the pass and retried on
// the next tick.
func (s *Sweeper) sweep(ctx context.Context) int {
	total := 0
	var skipped []string

	for ctx.Err() == nil {
		batch, err := s.settler.SettleDue(ctx, s.batchSize, skipped)
		total += batch.Settled
		skipped = append(skipped, batch.Skipped...)
		if err != nil {
			s.logger.Error().Err(err).Msg("settlement sweep failed")
			break
		}
		if batch.Attempted < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info().Int("settled", total).Msg("expired auctions settled")
	}
	if len(skipped) > 0 {
		s.logger.Warn().Int("skipped", len(skipped)).Msg("expired auctions left for the next sweep")
	}

	return total
}
