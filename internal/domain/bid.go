package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an immutable offer of Amount by UserID against one auction.
type Bid struct {
	ID        string
	AuctionID string
	UserID    string
	Amount    decimal.Decimal
	Reserved  decimal.Decimal
	CreatedAt time.Time
}

// Outranks reports whether b beats other: higher amount first, then the earlier bid.
// IDs are ULIDs and break exact timestamp ties in insertion order.
func (b *Bid) Outranks(other *Bid) bool {
	if c := b.Amount.Cmp(other.Amount); c != 0 {
		return c > 0
	}
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.Before(other.CreatedAt)
	}
	return b.ID < other.ID
}

// HighestBid returns the winning bid among bids, or nil when there are none.
func HighestBid(bids []*Bid) *Bid {
	var best *Bid
	for _, b := range bids {
		if best == nil || b.Outranks(best) {
			best = b
		}
	}
	return best
}

// BidsExcept returns the bids not placed by userID, keeping their order.
func BidsExcept(bids []*Bid, userID string) []*Bid {
	out := make([]*Bid, 0, len(bids))
	for _, b := range bids {
		if b.UserID != userID {
			out = append(out, b)
		}
	}
	return out
}
