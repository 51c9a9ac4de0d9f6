package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/infrastructure/metrics"
)

// SettlementUseCase closes auctions and refunds outbid collateral.
type SettlementUseCase struct {
	txManager       TransactionManager
	retrier         Retrier
	ledger          *Ledger
	auctionRepo     AuctionRepository
	bidRepo         BidRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	clock           Clock
	collateralRatio decimal.Decimal
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	retrier Retrier,
	ledger *Ledger,
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
	collateralRatio decimal.Decimal,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	if !collateralRatio.IsPositive() {
		collateralRatio = decimal.RequireFromString(DefaultCollateralRatio)
	}

	return &SettlementUseCase{
		txManager:       txManager,
		retrier:         retrier,
		ledger:          ledger,
		auctionRepo:     auctionRepo,
		bidRepo:         bidRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		clock:           clock,
		collateralRatio: collateralRatio,
		logger:          logger,
		metrics:         metrics,
	}
}

// SettlementResult describes a closed auction.
type SettlementResult struct {
	Auction    *domain.Auction
	WinningBid *domain.Bid
	Refunds    []*domain.WalletTransaction
	Trigger    SettlementTrigger
}

// SettleAuction closes an auction early on behalf of its seller.
func (uc *SettlementUseCase) SettleAuction(ctx context.Context, callerID, auctionID string) (*SettlementResult, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return uc.settle(ctx, auctionID, TriggerSeller, callerID)
}

// SettleExpired closes an auction whose end time has been reached.
// Repeated calls for the same auction fail with domain.ErrAlreadyEnded and change nothing.
func (uc *SettlementUseCase) SettleExpired(ctx context.Context, auctionID string) (*SettlementResult, error) {
	return uc.settle(ctx, auctionID, TriggerSystem, "")
}

// DueBatch reports one SettleDue call.
type DueBatch struct {
	Attempted int
	Settled   int
	// Skipped lists auctions that were attempted but not settled. A sweep
	// passes them back so the next batch moves past them.
	Skipped []string
}

// SettleDue attempts up to limit expired auctions, leaving out the IDs in skip.
func (uc *SettlementUseCase) SettleDue(ctx context.Context, limit int, skip []string) (DueBatch, error) {
	var batch DueBatch
	if limit <= 0 {
		limit = DefaultSettlementBatch
	}

	ids, err := uc.auctionRepo.ListExpiredIDs(ctx, uc.clock.Now(), limit+len(skip))
	if err != nil {
		return batch, storageError(err)
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		skipped[id] = struct{}{}
	}

	for _, id := range ids {
		if batch.Attempted == limit {
			break
		}
		if _, ok := skipped[id]; ok {
			continue
		}
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}

		batch.Attempted++
		_, err := uc.SettleExpired(ctx, id)
		switch {
		case err == nil:
			batch.Settled++
			continue
		case errors.Is(err, domain.ErrAlreadyEnded), errors.Is(err, domain.ErrAuctionNotExpired):
			// closed or extended by someone else since listing
		default:
			uc.logger.Error().Err(err).Str("auction_id", id).Msg("failed to settle expired auction")
		}
		batch.Skipped = append(batch.Skipped, id)
	}

	return batch, nil
}

func (uc *SettlementUseCase) settle(ctx context.Context, auctionID string, trigger SettlementTrigger, callerID string) (*SettlementResult, error) {
	start := time.Now()

	var result *SettlementResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := uc.clock.Now()

		// 1. Lock the auction; in-flight bids finish before we read the bids
		auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
		if err != nil {
			return err
		}

		if trigger == TriggerSeller && auction.SellerID != callerID {
			return domain.ErrForbidden
		}
		if auction.Status != domain.AuctionStatusActive {
			return domain.ErrAlreadyEnded
		}
		if trigger == TriggerSystem && !auction.HasExpired(now) {
			return domain.ErrAuctionNotExpired
		}

		// 2. Pick the winner
		bids, err := uc.bidRepo.ListByAuctionTx(ctx, tx, auction.ID)
		if err != nil {
			return err
		}

		winning := domain.HighestBid(bids)
		var winnerID *string
		if winning != nil {
			id := winning.UserID
			winnerID = &id
		}

		// 3. Close
		if err := auction.Close(winnerID, now); err != nil {
			return err
		}
		if err := uc.auctionRepo.Update(ctx, tx, auction); err != nil {
			return err
		}

		// 4. Refund every losing bid in the order it was placed, with the
		// bidders' wallets locked up front in user order
		losing := bids
		if winnerID != nil {
			losing = domain.BidsExcept(bids, *winnerID)
		}
		bidders := make([]string, 0, len(losing))
		for _, bid := range losing {
			bidders = append(bidders, bid.UserID)
		}
		if err := uc.ledger.LockWallets(ctx, tx, bidders); err != nil {
			return err
		}

		refunds := make([]*domain.WalletTransaction, 0, len(losing))
		for _, bid := range losing {
			amount := bid.Reserved
			if !amount.IsPositive() {
				amount = domain.Collateral(bid.Amount, uc.collateralRatio)
			}
			txn, err := uc.ledger.Refund(ctx, tx, bid.UserID, amount, auction.ID, bid.ID, now)
			if err != nil {
				return err
			}
			refunds = append(refunds, txn)
		}

		payload := map[string]any{
			"auction_id":  auction.ID,
			"trigger":     string(trigger),
			"final_price": auction.CurrentPrice.String(),
			"refunds":     len(refunds),
		}
		if winning != nil {
			payload["winner_id"] = winning.UserID
			payload["winning_bid_id"] = winning.ID
		}

		if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   auction.ID,
			AggregateType: domain.AggregateTypeAuction,
			EventType:     domain.EventTypeAuctionSettled,
			Payload:       payload,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		result = &SettlementResult{
			Auction:    auction,
			WinningBid: winning,
			Refunds:    refunds,
			Trigger:    trigger,
		}
		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.SettlementErrors.WithLabelValues(string(domain.KindOf(err))).Inc()
		}
		return nil, err
	}

	uc.record(result, start)

	return result, nil
}

func (uc *SettlementUseCase) record(result *SettlementResult, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.Settlements.WithLabelValues(string(result.Trigger)).Inc()
		uc.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
		for _, r := range result.Refunds {
			uc.metrics.RefundsIssued.Inc()
			uc.metrics.RefundAmount.Observe(r.Amount.InexactFloat64())
		}
	}

	event := uc.logger.Info().
		Str("auction_id", result.Auction.ID).
		Str("trigger", string(result.Trigger)).
		Str("final_price", result.Auction.CurrentPrice.String()).
		Int("refunds", len(result.Refunds))
	if result.WinningBid != nil {
		event = event.Str("winner_id", result.WinningBid.UserID)
	}
	event.Msg("auction settled")
}
