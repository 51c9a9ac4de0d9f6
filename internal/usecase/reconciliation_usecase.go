package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goauction/internal/domain"
)

// ReconciliationUseCase checks that wallet balances agree with their logs.
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
	clock      Clock
	logger     zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgerRepo LedgerRepository, clock Clock, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		ledgerRepo: ledgerRepo,
		clock:      clock,
		logger:     logger,
	}
}

// ReconciliationReport represents the result of a consistency check
type ReconciliationReport struct {
	WalletsChecked int
	Discrepancies  []domain.WalletTotals
	Consistent     bool
	CheckedAt      time.Time
}

// CheckConsistency verifies every wallet balance equals the sum of its
// transactions and that no balance is negative.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ReconciliationReport, error) {
	totals, err := uc.ledgerRepo.WalletTotals(ctx)
	if err != nil {
		return nil, storageError(fmt.Errorf("load wallet totals: %w", err))
	}

	report := &ReconciliationReport{
		WalletsChecked: len(totals),
		Discrepancies:  make([]domain.WalletTotals, 0),
		CheckedAt:      uc.clock.Now(),
	}

	for _, t := range totals {
		if !t.Consistent() {
			report.Discrepancies = append(report.Discrepancies, t)
			uc.logger.Error().
				Str("user_id", t.UserID).
				Str("balance", t.Balance.String()).
				Str("log_sum", t.LogSum.String()).
				Msg("wallet balance does not match its transaction log")
		}
	}
	report.Consistent = len(report.Discrepancies) == 0

	return report, nil
}
