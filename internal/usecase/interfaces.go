package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
)

// AuctionRepository defines data access for auctions.
type AuctionRepository interface {
	Create(ctx context.Context, tx Transaction, auction *domain.Auction) error
	GetByID(ctx context.Context, id string) (*domain.Auction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Auction, error)
	Update(ctx context.Context, tx Transaction, auction *domain.Auction) error
	ListActive(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*domain.Auction, error)
	// ListExpiredIDs returns ACTIVE auctions whose end time is at or before now.
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// BidRepository defines data access for bids.
type BidRepository interface {
	Create(ctx context.Context, tx Transaction, bid *domain.Bid) error
	ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error)
	ListByAuctionTx(ctx context.Context, tx Transaction, auctionID string) ([]*domain.Bid, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Bid, error)
}

// WalletRepository defines data access for wallets.
type WalletRepository interface {
	// Create inserts wallet unless the user already has one.
	Create(ctx context.Context, tx Transaction, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx Transaction, userID string) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx Transaction, userID string, balance decimal.Decimal, updatedAt time.Time) error
}

// WalletTransactionRepository defines data access for the append-only wallet log.
type WalletTransactionRepository interface {
	// Create appends txn. A second REFUND for the same bid fails with domain.ErrAlreadyRefunded.
	Create(ctx context.Context, tx Transaction, txn *domain.WalletTransaction) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	WalletTotals(ctx context.Context) ([]domain.WalletTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed on a transient storage error.
// Exhausted retries surface as domain.ErrConflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Verifier screens listing media and description before an auction is published.
type Verifier interface {
	Verify(ctx context.Context, media domain.Media, description string) (*domain.Verification, error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key whose request failed before producing a response.
	Delete(ctx context.Context, key string) error
}
