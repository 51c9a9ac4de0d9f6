package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's available (unreserved) funds. Balance is the running
// sum of the wallet's transaction log.
type Wallet struct {
	UserID    string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionKind classifies a wallet transaction.
type TransactionKind string

const (
	TransactionDeposit TransactionKind = "DEPOSIT"
	TransactionBidHold TransactionKind = "BID_HOLD"
	TransactionRefund  TransactionKind = "REFUND"
)

// WalletTransaction is one append-only entry of a wallet's log.
// Amount is signed: holds are negative, deposits and refunds positive.
type WalletTransaction struct {
	ID           string
	UserID       string
	Kind         TransactionKind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Description  string
	AuctionID    *string
	BidID        *string
	CreatedAt    time.Time
}

// NewWallet returns an empty wallet for userID.
func NewWallet(userID string, now time.Time) *Wallet {
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateDebit checks the wallet can cover amount without going negative.
func (w *Wallet) ValidateDebit(amount decimal.Decimal) error {
	if w.Balance.LessThan(amount) {
		return fmt.Errorf("%w: you need at least %s in your wallet, available %s",
			ErrInsufficientFunds, amount.StringFixed(2), w.Balance.StringFixed(2))
	}
	return nil
}

// Apply posts tx to the wallet. tx.Amount is signed; the resulting balance
// is recorded on tx.
func (w *Wallet) Apply(tx *WalletTransaction, now time.Time) error {
	next := w.Balance.Add(tx.Amount)
	if next.IsNegative() {
		return fmt.Errorf("%w: balance would become %s", ErrInsufficientFunds, next.StringFixed(2))
	}
	w.Balance = next
	w.Version++
	w.UpdatedAt = now
	tx.BalanceAfter = next
	return nil
}

// WalletTotals compares a wallet's stored balance with the sum of its log.
type WalletTotals struct {
	UserID  string
	Balance decimal.Decimal
	LogSum  decimal.Decimal
}

// Consistent reports whether the stored balance matches the log and is not negative.
func (t WalletTotals) Consistent() bool {
	return t.Balance.Equal(t.LogSum) && !t.Balance.IsNegative()
}
