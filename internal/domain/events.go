package domain

import "time"

// Event types
const (
	EventTypeAuctionCreated = "auction.created"
	EventTypeBidPlaced      = "bid.placed"
	EventTypeAuctionSettled = "auction.settled"
)

// Aggregate types
const (
	AggregateTypeAuction = "auction"
)

// OutboxEvent is an event recorded in the same transaction as the state change
// it describes, published later by the outbox worker.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
