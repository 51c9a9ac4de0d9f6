package postgres_test

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goauction/internal/adapter/repository/postgres"
	"github.com/iho/goauction/internal/domain"
	infrapg "github.com/iho/goauction/internal/infrastructure/postgres"
	"github.com/iho/goauction/internal/usecase"
)

// integrationEnv wires the use cases over a real database. Set
// TEST_DATABASE_URL to run these tests.
type integrationEnv struct {
	pool       *pgxpool.Pool
	auctions   *usecase.AuctionUseCase
	bidding    *usecase.BiddingUseCase
	settlement *usecase.SettlementUseCase
	wallets    *usecase.WalletUseCase
	recon      *usecase.ReconciliationUseCase
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" || testing.Short() {
		t.Skip("skipping integration test: TEST_DATABASE_URL not set")
	}

	logger := zerolog.New(io.Discard)
	require.NoError(t, infrapg.NewMigrator(dbURL, "../../../../migrations", logger).Up())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPool(ctx, dbURL, 20, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE outbox_events, wallet_transactions, bids, wallets, auctions CASCADE`)
	require.NoError(t, err)

	txManager := postgres.NewTxManager(pool)
	retrier := postgres.NewRetrier(logger)
	ids := postgres.NewULIDGenerator()
	clock := usecase.SystemClock{}
	ratio := decimal.RequireFromString(usecase.DefaultCollateralRatio)

	auctionRepo := postgres.NewAuctionRepository(pool)
	bidRepo := postgres.NewBidRepository(pool)
	walletRepo := postgres.NewWalletRepository(pool)
	txnRepo := postgres.NewWalletTransactionRepository(pool)
	outbox := postgres.NewOutboxRepository(pool)
	ledger := usecase.NewLedger(walletRepo, txnRepo, ids)

	return &integrationEnv{
		pool:       pool,
		auctions:   usecase.NewAuctionUseCase(txManager, auctionRepo, bidRepo, outbox, ids, clock, logger, nil),
		bidding:    usecase.NewBiddingUseCase(txManager, retrier, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil),
		settlement: usecase.NewSettlementUseCase(txManager, retrier, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil),
		wallets:    usecase.NewWalletUseCase(txManager, retrier, ledger, walletRepo, txnRepo, clock, logger, nil),
		recon:      usecase.NewReconciliationUseCase(postgres.NewLedgerRepository(pool), clock, logger),
	}
}

func (e *integrationEnv) listing(t *testing.T, seller string) *domain.Auction {
	t.Helper()
	a, err := e.auctions.CreateAuction(context.Background(), usecase.CreateAuctionInput{
		SellerID:      seller,
		Title:         "Mechanical keyboard",
		Description:   "Brown switches",
		Category:      "electronics",
		Condition:     domain.ConditionLikeNew,
		Media:         domain.ImageMedia("kb.jpg"),
		StartingPrice: decimal.NewFromInt(10),
		Duration:      domain.DurationSpec{Value: 1, Unit: domain.DurationDays},
	})
	require.NoError(t, err)
	return a
}

func TestIntegration_ConcurrentBidsKeepPriceMonotonic(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	auction := env.listing(t, "seller")

	const bidders = 20
	for i := range bidders {
		_, err := env.wallets.Deposit(ctx, bidderName(i), decimal.NewFromInt(1000))
		require.NoError(t, err)
	}

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	wg.Add(bidders)
	for i := range bidders {
		go func() {
			defer wg.Done()
			_, err := env.bidding.PlaceBid(ctx, usecase.PlaceBidInput{
				UserID:    bidderName(i),
				AuctionID: auction.ID,
				Amount:    decimal.NewFromInt(int64(20 + i)),
			})
			if err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	detail, err := env.auctions.GetAuction(ctx, auction.ID)
	require.NoError(t, err)

	require.NotZero(t, accepted.Load())
	assert.Len(t, detail.Bids, int(accepted.Load()))
	assert.Equal(t, int(accepted.Load()), detail.Auction.BidCount)
	assert.True(t, detail.Auction.CurrentPrice.Equal(detail.Bids[0].Amount), "current price equals highest bid")

	report, err := env.recon.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestIntegration_SettlementRefundsLosers(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	auction := env.listing(t, "seller")
	for _, u := range []string{"bob", "carol"} {
		_, err := env.wallets.Deposit(ctx, u, decimal.NewFromInt(100))
		require.NoError(t, err)
	}

	_, err := env.bidding.PlaceBid(ctx, usecase.PlaceBidInput{UserID: "carol", AuctionID: auction.ID, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	_, err = env.bidding.PlaceBid(ctx, usecase.PlaceBidInput{UserID: "bob", AuctionID: auction.ID, Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)

	result, err := env.settlement.SettleAuction(ctx, "seller", auction.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Auction.WinnerID)
	assert.Equal(t, "bob", *result.Auction.WinnerID)
	assert.Len(t, result.Refunds, 1)

	_, err = env.settlement.SettleAuction(ctx, "seller", auction.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnded)

	carol, err := env.wallets.GetWallet(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, carol.Balance.Equal(decimal.NewFromInt(100)), "carol balance %s", carol.Balance)

	bob, err := env.wallets.GetWallet(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, bob.Balance.Equal(decimal.NewFromInt(70)), "bob balance %s", bob.Balance)
}

func bidderName(i int) string {
	return "bidder-" + string(rune('a'+i))
}
