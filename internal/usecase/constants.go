package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a storage transaction
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCollateralRatio is the share of a bid reserved from the bidder's wallet
	DefaultCollateralRatio = "0.5"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is stored under a key while its first request runs
	IdempotencyPending = "processing"

	// DefaultSettlementBatch bounds how many expired auctions one sweep settles
	DefaultSettlementBatch = 50
)

// SettlementTrigger identifies who closed an auction.
type SettlementTrigger string

const (
	TriggerSeller SettlementTrigger = "seller"
	TriggerSystem SettlementTrigger = "system"
)
