package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/infrastructure/metrics"
)

// BiddingUseCase places bids. Validation, collateral reservation and the
// price update commit together in one transaction that holds the auction
// row lock, so concurrent bids on one auction are serialized.
type BiddingUseCase struct {
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

// NewBiddingUseCase creates a new BiddingUseCase.
func NewBiddingUseCase(
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
) *BiddingUseCase {
	if !collateralRatio.IsPositive() {
		collateralRatio = decimal.RequireFromString(DefaultCollateralRatio)
	}

	return &BiddingUseCase{
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

// PlaceBidInput represents input for placing a bid.
type PlaceBidInput struct {
	UserID    string
	AuctionID string
	Amount    decimal.Decimal
}

// PlaceBid records a bid of Amount by UserID and reserves its collateral.
func (uc *BiddingUseCase) PlaceBid(ctx context.Context, input PlaceBidInput) (*domain.Bid, error) {
	start := time.Now()

	bid, err := uc.placeBid(ctx, input)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.BidsRejected.WithLabelValues(string(domain.KindOf(err))).Inc()
		}
		uc.logger.Debug().
			Err(err).
			Str("auction_id", input.AuctionID).
			Str("user_id", input.UserID).
			Str("amount", input.Amount.String()).
			Msg("bid rejected")
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BidsPlaced.Inc()
		uc.metrics.Reservations.Inc()
		uc.metrics.BidAmount.Observe(bid.Amount.InexactFloat64())
		uc.metrics.BidDuration.Observe(time.Since(start).Seconds())
	}
	uc.logger.Info().
		Str("auction_id", bid.AuctionID).
		Str("bid_id", bid.ID).
		Str("user_id", bid.UserID).
		Str("amount", bid.Amount.String()).
		Str("reserved", bid.Reserved.String()).
		Msg("bid placed")

	return bid, nil
}

func (uc *BiddingUseCase) placeBid(ctx context.Context, input PlaceBidInput) (*domain.Bid, error) {
	if input.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	var bid *domain.Bid
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := uc.clock.Now()

		// 1. Lock the auction; every bid and settlement on it queues here
		auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, input.AuctionID)
		if err != nil {
			return err
		}

		// 2. Validate before touching any funds
		if err := auction.CheckBid(input.UserID, input.Amount, now); err != nil {
			return err
		}

		// 3. Reserve collateral
		bid = &domain.Bid{
			ID:        uc.idGen.Generate(),
			AuctionID: auction.ID,
			UserID:    input.UserID,
			Amount:    input.Amount,
			Reserved:  domain.Collateral(input.Amount, uc.collateralRatio),
			CreatedAt: now,
		}
		if _, err := uc.ledger.Reserve(ctx, tx, bid.UserID, bid.Reserved, auction.ID, bid.ID, now); err != nil {
			return err
		}

		// 4. Commit price and bid
		if err := auction.AcceptBid(input.UserID, input.Amount, now); err != nil {
			return err
		}
		if err := uc.auctionRepo.Update(ctx, tx, auction); err != nil {
			return err
		}
		if err := uc.bidRepo.Create(ctx, tx, bid); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   auction.ID,
			AggregateType: domain.AggregateTypeAuction,
			EventType:     domain.EventTypeBidPlaced,
			Payload: map[string]any{
				"auction_id":    auction.ID,
				"bid_id":        bid.ID,
				"user_id":       bid.UserID,
				"amount":        bid.Amount.String(),
				"reserved":      bid.Reserved.String(),
				"current_price": auction.CurrentPrice.String(),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return bid, nil
}
