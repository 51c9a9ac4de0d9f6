package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/goauction/internal/adapter/repository/memory"
	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

var testStart = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

type fixture struct {
	store      *memory.Store
	clock      *fakeClock
	ids        *seqIDs
	walletRepo *memory.WalletRepository
	txnRepo    *memory.WalletTransactionRepository
	bidRepo    *memory.BidRepository
	outbox     *memory.OutboxRepository

	auctions   *usecase.AuctionUseCase
	bidding    *usecase.BiddingUseCase
	settlement *usecase.SettlementUseCase
	wallets    *usecase.WalletUseCase
	recon      *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T, opts ...usecase.AuctionOption) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: testStart}
	ids := &seqIDs{}
	logger := zerolog.New(io.Discard)
	ratio := decimal.RequireFromString(usecase.DefaultCollateralRatio)

	auctionRepo := memory.NewAuctionRepository(store)
	bidRepo := memory.NewBidRepository(store)
	walletRepo := memory.NewWalletRepository(store)
	txnRepo := memory.NewWalletTransactionRepository(store)
	outbox := memory.NewOutboxRepository(store)
	ledger := usecase.NewLedger(walletRepo, txnRepo, ids)

	return &fixture{
		store:      store,
		clock:      clock,
		ids:        ids,
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		bidRepo:    bidRepo,
		outbox:     outbox,
		auctions:   usecase.NewAuctionUseCase(store, auctionRepo, bidRepo, outbox, ids, clock, logger, nil, opts...),
		bidding:    usecase.NewBiddingUseCase(store, nil, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil),
		settlement: usecase.NewSettlementUseCase(store, nil, ledger, auctionRepo, bidRepo, outbox, ids, clock, ratio, logger, nil),
		wallets:    usecase.NewWalletUseCase(store, nil, ledger, walletRepo, txnRepo, clock, logger, nil),
		recon:      usecase.NewReconciliationUseCase(memory.NewLedgerRepository(store), clock, logger),
	}
}

func (f *fixture) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := f.wallets.Deposit(context.Background(), userID, decimal.NewFromInt(amount))
	require.NoError(t, err)
}

func (f *fixture) listing(t *testing.T, sellerID string, startingPrice int64) *domain.Auction {
	t.Helper()
	a, err := f.auctions.CreateAuction(context.Background(), usecase.CreateAuctionInput{
		SellerID:      sellerID,
		Title:         "Vintage watch",
		Description:   "Hand wound, serviced last year",
		Category:      "jewelry",
		Condition:     domain.ConditionGood,
		Media:         domain.ImageMedia("watch.jpg"),
		StartingPrice: decimal.NewFromInt(startingPrice),
		Duration:      domain.DurationSpec{Value: 1, Unit: domain.DurationDays},
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) bid(userID, auctionID string, amount int64) (*domain.Bid, error) {
	return f.bidding.PlaceBid(context.Background(), usecase.PlaceBidInput{
		UserID:    userID,
		AuctionID: auctionID,
		Amount:    decimal.NewFromInt(amount),
	})
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) history(t *testing.T, userID string) []*domain.WalletTransaction {
	t.Helper()
	txns, err := f.wallets.ListTransactions(context.Background(), usecase.ListTransactionsInput{UserID: userID, Limit: 100})
	require.NoError(t, err)
	return txns
}

func (f *fixture) auction(t *testing.T, id string) *usecase.AuctionDetail {
	t.Helper()
	d, err := f.auctions.GetAuction(context.Background(), id)
	require.NoError(t, err)
	return d
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func countKind(txns []*domain.WalletTransaction, kind domain.TransactionKind) int {
	n := 0
	for _, t := range txns {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

func memoryAuctions(f *fixture) *memory.AuctionRepository {
	return memory.NewAuctionRepository(f.store)
}

func nopLogger() zerolog.Logger { return zerolog.New(io.Discard) }
