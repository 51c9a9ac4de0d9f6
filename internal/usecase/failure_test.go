package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
	"github.com/iho/goauction/internal/usecase/mocks"
)

type bidMocks struct {
	txManager *mocks.MockTransactionManager
	tx        *mocks.MockTransaction
	auctions  *mocks.MockAuctionRepository
	bids      *mocks.MockBidRepository
	wallets   *mocks.MockWalletRepository
	txns      *mocks.MockWalletTransactionRepository
	outbox    *mocks.MockOutboxRepository
	ids       *mocks.MockIDGenerator
	clock     *mocks.MockClock
	retrier   *mocks.MockRetrier
}

func newBidMocks(ctrl *gomock.Controller) *bidMocks {
	return &bidMocks{
		txManager: mocks.NewMockTransactionManager(ctrl),
		tx:        mocks.NewMockTransaction(ctrl),
		auctions:  mocks.NewMockAuctionRepository(ctrl),
		bids:      mocks.NewMockBidRepository(ctrl),
		wallets:   mocks.NewMockWalletRepository(ctrl),
		txns:      mocks.NewMockWalletTransactionRepository(ctrl),
		outbox:    mocks.NewMockOutboxRepository(ctrl),
		ids:       mocks.NewMockIDGenerator(ctrl),
		clock:     mocks.NewMockClock(ctrl),
		retrier:   mocks.NewMockRetrier(ctrl),
	}
}

func (m *bidMocks) useCase(retrier usecase.Retrier) *usecase.BiddingUseCase {
	return usecase.NewBiddingUseCase(
		m.txManager, retrier,
		usecase.NewLedger(m.wallets, m.txns, m.ids),
		m.auctions, m.bids, m.outbox, m.ids, m.clock,
		decimal.RequireFromString("0.5"), nopLogger(), nil,
	)
}

func openAuction() *domain.Auction {
	return &domain.Auction{
		ID:           "auc-1",
		SellerID:     "seller",
		CurrentPrice: decimal.NewFromInt(10),
		Status:       domain.AuctionStatusActive,
		EndTime:      testStart.Add(24 * time.Hour),
	}
}

func TestBiddingUseCase_RollsBackWhenBidInsertFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newBidMocks(ctrl)

	m.clock.EXPECT().Now().Return(testStart).AnyTimes()
	m.ids.EXPECT().Generate().Return("generated").AnyTimes()
	m.txManager.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.auctions.EXPECT().GetByIDForUpdate(gomock.Any(), m.tx, "auc-1").Return(openAuction(), nil)
	m.wallets.EXPECT().GetByUserIDForUpdate(gomock.Any(), m.tx, "alice").
		Return(&domain.Wallet{UserID: "alice", Balance: decimal.NewFromInt(100)}, nil)
	m.txns.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(nil)
	m.wallets.EXPECT().UpdateBalance(gomock.Any(), m.tx, "alice", gomock.Any(), gomock.Any()).Return(nil)
	m.auctions.EXPECT().Update(gomock.Any(), m.tx, gomock.Any()).Return(nil)
	m.bids.EXPECT().Create(gomock.Any(), m.tx, gomock.Any()).Return(errors.New("connection reset"))
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	// no Commit expected

	_, err := m.useCase(nil).PlaceBid(context.Background(), usecase.PlaceBidInput{
		UserID: "alice", AuctionID: "auc-1", Amount: decimal.NewFromInt(20),
	})

	require.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
}

func TestBiddingUseCase_NoReservationForDoomedBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newBidMocks(ctrl)

	m.clock.EXPECT().Now().Return(testStart).AnyTimes()
	m.txManager.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.auctions.EXPECT().GetByIDForUpdate(gomock.Any(), m.tx, "auc-1").Return(openAuction(), nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
	// wallets and the log are never touched

	_, err := m.useCase(nil).PlaceBid(context.Background(), usecase.PlaceBidInput{
		UserID: "alice", AuctionID: "auc-1", Amount: decimal.NewFromInt(5),
	})

	require.ErrorIs(t, err, domain.ErrBidTooLow)
}

func TestBiddingUseCase_SurfacesConflictFromRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newBidMocks(ctrl)

	m.retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: serialization failure", domain.ErrConflict))

	_, err := m.useCase(m.retrier).PlaceBid(context.Background(), usecase.PlaceBidInput{
		UserID: "alice", AuctionID: "auc-1", Amount: decimal.NewFromInt(20),
	})

	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestBiddingUseCase_BeginFailureIsStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newBidMocks(ctrl)

	m.txManager.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("pool exhausted"))

	_, err := m.useCase(nil).PlaceBid(context.Background(), usecase.PlaceBidInput{
		UserID: "alice", AuctionID: "auc-1", Amount: decimal.NewFromInt(20),
	})

	require.ErrorIs(t, err, domain.ErrStorageFailure)
}

// flakyTxnRepo fails Create whenever fail returns an error.
type flakyTxnRepo struct {
	usecase.WalletTransactionRepository
	fail func(txn *domain.WalletTransaction) error
}

func (r *flakyTxnRepo) Create(ctx context.Context, tx usecase.Transaction, txn *domain.WalletTransaction) error {
	if err := r.fail(txn); err != nil {
		return err
	}
	return r.WalletTransactionRepository.Create(ctx, tx, txn)
}

func (f *fixture) settlementWith(txns usecase.WalletTransactionRepository) *usecase.SettlementUseCase {
	return usecase.NewSettlementUseCase(
		f.store, nil,
		usecase.NewLedger(f.walletRepo, txns, f.ids),
		memoryAuctions(f), f.bidRepo, f.outbox, f.ids, f.clock,
		decimal.RequireFromString(usecase.DefaultCollateralRatio), nopLogger(), nil,
	)
}

func TestSettlementUseCase_RefundFailureLeavesAuctionOpen(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "a", 100)
	f.fund(t, "b", 100)
	f.fund(t, "c", 100)
	auction := f.listing(t, "seller", 10)

	for _, b := range []struct {
		user   string
		amount int64
	}{{"a", 20}, {"b", 30}, {"c", 40}} {
		_, err := f.bid(b.user, auction.ID, b.amount)
		require.NoError(t, err)
	}

	refunds := 0
	settlement := f.settlementWith(&flakyTxnRepo{
		WalletTransactionRepository: f.txnRepo,
		fail: func(txn *domain.WalletTransaction) error {
			if txn.Kind != domain.TransactionRefund {
				return nil
			}
			refunds++
			if refunds == 2 {
				return errors.New("disk full")
			}
			return nil
		},
	})

	_, err := settlement.SettleAuction(context.Background(), "seller", auction.ID)

	require.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	assert.Equal(t, 2, refunds)

	got := f.auction(t, auction.ID).Auction
	assert.Equal(t, domain.AuctionStatusActive, got.Status)
	assert.Nil(t, got.WinnerID)

	for user, want := range map[string]string{"a": "90", "b": "85", "c": "80"} {
		assert.True(t, f.balance(t, user).Equal(dec(want)), "user %s balance %s", user, f.balance(t, user))
		assert.Zero(t, countKind(f.history(t, user), domain.TransactionRefund), "user %s", user)
	}

	report, err := f.recon.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	// the auction can still be settled once storage recovers
	result, err := f.settlement.SettleAuction(context.Background(), "seller", auction.ID)
	require.NoError(t, err)
	assert.Len(t, result.Refunds, 2)
}

func TestSettlementUseCase_SettleDueMovesPastFailingAuction(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", 100)
	f.fund(t, "bob", 100)

	stuck := f.listing(t, "seller", 10)
	_, err := f.bid("alice", stuck.ID, 20)
	require.NoError(t, err)
	_, err = f.bid("bob", stuck.ID, 30)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	healthy := f.listing(t, "seller", 10)
	_, err = f.bid("alice", healthy.ID, 20)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)

	settlement := f.settlementWith(&flakyTxnRepo{
		WalletTransactionRepository: f.txnRepo,
		fail: func(txn *domain.WalletTransaction) error {
			if txn.AuctionID != nil && *txn.AuctionID == stuck.ID {
				return errors.New("disk full")
			}
			return nil
		},
	})

	first, err := settlement.SettleDue(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempted)
	assert.Zero(t, first.Settled)
	assert.Equal(t, []string{stuck.ID}, first.Skipped)

	second, err := settlement.SettleDue(context.Background(), 1, first.Skipped)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Attempted)
	assert.Equal(t, 1, second.Settled)
	assert.Empty(t, second.Skipped)

	assert.Equal(t, domain.AuctionStatusActive, f.auction(t, stuck.ID).Auction.Status)
	assert.Equal(t, domain.AuctionStatusEnded, f.auction(t, healthy.ID).Auction.Status)

	third, err := settlement.SettleDue(context.Background(), 1, append(first.Skipped, second.Skipped...))
	require.NoError(t, err)
	assert.Zero(t, third.Attempted)
}
