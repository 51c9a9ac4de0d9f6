package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/infrastructure/metrics"
)

// AuctionUseCase handles listing and browsing auctions.
type AuctionUseCase struct {
	txManager           TransactionManager
	auctionRepo         AuctionRepository
	bidRepo             BidRepository
	outboxRepo          OutboxRepository
	verifier            Verifier
	requireVerification bool
	idGen               IDGenerator
	clock               Clock
	logger              zerolog.Logger
	metrics             *metrics.Metrics
}

// AuctionOption configures optional AuctionUseCase collaborators.
type AuctionOption func(*AuctionUseCase)

// WithVerifier consults v when a listing is created. With require set,
// listings the verifier does not approve are rejected.
func WithVerifier(v Verifier, require bool) AuctionOption {
	return func(uc *AuctionUseCase) {
		uc.verifier = v
		uc.requireVerification = require
	}
}

// NewAuctionUseCase creates a new AuctionUseCase.
func NewAuctionUseCase(
	txManager TransactionManager,
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
	opts ...AuctionOption,
) *AuctionUseCase {
	uc := &AuctionUseCase{
		txManager:   txManager,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateAuctionInput represents input for creating an auction.
type CreateAuctionInput struct {
	SellerID      string
	Title         string
	Description   string
	Category      string
	Condition     domain.Condition
	Media         domain.Media
	Verified      bool
	StartingPrice decimal.Decimal
	Duration      domain.DurationSpec
}

// CreateAuction publishes a new ACTIVE auction owned by the caller.
func (uc *AuctionUseCase) CreateAuction(ctx context.Context, input CreateAuctionInput) (*domain.Auction, error) {
	if input.SellerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	verified, err := uc.verify(ctx, input)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	auction, err := domain.NewAuction(domain.NewAuctionParams{
		ID:            uc.idGen.Generate(),
		SellerID:      input.SellerID,
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Condition:     input.Condition,
		Media:         input.Media,
		Verified:      verified,
		StartingPrice: input.StartingPrice,
		Duration:      input.Duration,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, uc.txManager, nil, func(ctx context.Context, tx Transaction) error {
		if err := uc.auctionRepo.Create(ctx, tx, auction); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   auction.ID,
			AggregateType: domain.AggregateTypeAuction,
			EventType:     domain.EventTypeAuctionCreated,
			Payload: map[string]any{
				"auction_id":     auction.ID,
				"seller_id":      auction.SellerID,
				"starting_price": auction.StartingPrice.String(),
				"end_time":       auction.EndTime,
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AuctionsCreated.Inc()
	}
	uc.logger.Info().
		Str("auction_id", auction.ID).
		Str("seller_id", auction.SellerID).
		Time("end_time", auction.EndTime).
		Msg("auction created")

	return auction, nil
}

func (uc *AuctionUseCase) verify(ctx context.Context, input CreateAuctionInput) (bool, error) {
	if uc.verifier == nil {
		return input.Verified, nil
	}

	result, err := uc.verifier.Verify(ctx, input.Media, input.Description)
	if err != nil {
		if uc.requireVerification {
			return false, storageError(fmt.Errorf("verify listing: %w", err))
		}
		uc.logger.Warn().Err(err).Str("seller_id", input.SellerID).Msg("listing verification unavailable")
		return false, nil
	}

	if !result.Approved && uc.requireVerification {
		return false, fmt.Errorf("%w: listing not verified: %s", domain.ErrInvalidInput, result.Message)
	}

	return result.Approved, nil
}

// VerifyListing screens media and description without creating a listing.
// Without a configured verifier every well formed listing is approved.
func (uc *AuctionUseCase) VerifyListing(ctx context.Context, media domain.Media, description string) (*domain.Verification, error) {
	if err := media.Validate(); err != nil {
		return nil, err
	}

	if uc.verifier == nil {
		return &domain.Verification{Approved: true, Message: "no verifier configured"}, nil
	}

	result, err := uc.verifier.Verify(ctx, media, description)
	if err != nil {
		return nil, storageError(fmt.Errorf("verify listing: %w", err))
	}

	return result, nil
}

// AuctionDetail is an auction with its bids, highest first.
type AuctionDetail struct {
	Auction *domain.Auction
	Bids    []*domain.Bid
}

// GetAuction returns an auction and its bids.
func (uc *AuctionUseCase) GetAuction(ctx context.Context, id string) (*AuctionDetail, error) {
	auction, err := uc.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	bids, err := uc.bidRepo.ListByAuction(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Outranks(bids[j]) })

	return &AuctionDetail{Auction: auction, Bids: bids}, nil
}

// ListAuctionsInput represents the browse filters.
type ListAuctionsInput struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// ListActiveAuctions lists open auctions, newest first.
func (uc *AuctionUseCase) ListActiveAuctions(ctx context.Context, input ListAuctionsInput) ([]*domain.Auction, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	auctions, err := uc.auctionRepo.ListActive(ctx, domain.AuctionFilter{
		Category: input.Category,
		Search:   input.Search,
		Now:      uc.clock.Now(),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, storageError(err)
	}

	return auctions, nil
}

// GetUserAuctions lists the auctions the caller is selling.
func (uc *AuctionUseCase) GetUserAuctions(ctx context.Context, userID string, limit, offset int) ([]*domain.Auction, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	auctions, err := uc.auctionRepo.ListBySeller(ctx, userID, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}

	return auctions, nil
}

// GetUserBids lists the caller's bids, newest first.
func (uc *AuctionUseCase) GetUserBids(ctx context.Context, userID string, limit, offset int) ([]*domain.Bid, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	bids, err := uc.bidRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}

	return bids, nil
}
