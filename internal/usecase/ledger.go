package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
)

// Ledger posts wallet transactions. Every balance change goes through the
// wallet log, inside the caller's transaction.
type Ledger struct {
	walletRepo WalletRepository
	txnRepo    WalletTransactionRepository
	idGen      IDGenerator
}

// NewLedger creates a new Ledger.
func NewLedger(walletRepo WalletRepository, txnRepo WalletTransactionRepository, idGen IDGenerator) *Ledger {
	return &Ledger{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		idGen:      idGen,
	}
}

// Reserve debits amount from userID's wallet as a BID_HOLD for bidID.
func (l *Ledger) Reserve(ctx context.Context, tx Transaction, userID string, amount decimal.Decimal, auctionID, bidID string, now time.Time) (*domain.WalletTransaction, error) {
	wallet, err := l.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return nil, fmt.Errorf("%w: you don't have a wallet", domain.ErrInsufficientFunds)
	}
	if err != nil {
		return nil, err
	}

	if err := wallet.ValidateDebit(amount); err != nil {
		return nil, err
	}

	return l.post(ctx, tx, wallet, &domain.WalletTransaction{
		ID:          l.idGen.Generate(),
		UserID:      userID,
		Kind:        domain.TransactionBidHold,
		Amount:      amount.Neg(),
		Description: fmt.Sprintf("Bid hold on auction %s", auctionID),
		AuctionID:   &auctionID,
		BidID:       &bidID,
		CreatedAt:   now,
	}, now)
}

// Refund credits amount back to userID for the hold taken by bidID.
func (l *Ledger) Refund(ctx context.Context, tx Transaction, userID string, amount decimal.Decimal, auctionID, bidID string, now time.Time) (*domain.WalletTransaction, error) {
	wallet, err := l.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return l.post(ctx, tx, wallet, &domain.WalletTransaction{
		ID:          l.idGen.Generate(),
		UserID:      userID,
		Kind:        domain.TransactionRefund,
		Amount:      amount,
		Description: fmt.Sprintf("Refund for outbid on auction %s", auctionID),
		AuctionID:   &auctionID,
		BidID:       &bidID,
		CreatedAt:   now,
	}, now)
}

// LockWallets locks the wallets of userIDs in ascending user order so that
// concurrent multi-wallet postings always acquire row locks the same way.
func (l *Ledger) LockWallets(ctx context.Context, tx Transaction, userIDs []string) error {
	ordered := append([]string(nil), userIDs...)
	sort.Strings(ordered)

	for i, id := range ordered {
		if i > 0 && ordered[i-1] == id {
			continue
		}
		if _, err := l.walletRepo.GetByUserIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// Deposit credits amount to userID, opening the wallet on first use.
func (l *Ledger) Deposit(ctx context.Context, tx Transaction, userID string, amount decimal.Decimal, now time.Time) (*domain.WalletTransaction, error) {
	if err := l.walletRepo.Create(ctx, tx, domain.NewWallet(userID, now)); err != nil {
		return nil, err
	}

	wallet, err := l.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return l.post(ctx, tx, wallet, &domain.WalletTransaction{
		ID:          l.idGen.Generate(),
		UserID:      userID,
		Kind:        domain.TransactionDeposit,
		Amount:      amount,
		Description: "Wallet deposit",
		CreatedAt:   now,
	}, now)
}

func (l *Ledger) post(ctx context.Context, tx Transaction, wallet *domain.Wallet, txn *domain.WalletTransaction, now time.Time) (*domain.WalletTransaction, error) {
	if err := wallet.Apply(txn, now); err != nil {
		return nil, err
	}

	if err := l.txnRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := l.walletRepo.UpdateBalance(ctx, tx, wallet.UserID, wallet.Balance, now); err != nil {
		return nil, err
	}

	return txn, nil
}
