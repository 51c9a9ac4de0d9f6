package memory

import (
	"context"
	"sort"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// BidRepository implements usecase.BidRepository.
type BidRepository struct {
	store *Store
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(store *Store) *BidRepository {
	return &BidRepository{store: store}
}

// Create appends a bid. Bids are immutable once recorded.
func (r *BidRepository) Create(ctx context.Context, tx usecase.Transaction, bid *domain.Bid) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.auctions[bid.AuctionID]; !ok {
		return domain.ErrAuctionNotFound
	}
	st.bids = append(st.bids, *bid)
	return nil
}

// ListByAuction returns an auction's committed bids in insertion order.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var out []*domain.Bid
	r.store.read(func(st *state) { out = bidsOf(st, auctionID) })
	return out, nil
}

// ListByAuctionTx returns an auction's bids as seen by tx, in insertion order.
func (r *BidRepository) ListByAuctionTx(ctx context.Context, tx usecase.Transaction, auctionID string) ([]*domain.Bid, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}
	return bidsOf(st, auctionID), nil
}

// ListByUser returns a user's bids, newest first.
func (r *BidRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Bid, error) {
	var out []*domain.Bid
	r.store.read(func(st *state) {
		for i := len(st.bids) - 1; i >= 0; i-- {
			if st.bids[i].UserID == userID {
				b := st.bids[i]
				out = append(out, &b)
			}
		}
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return page(out, limit, offset), nil
}

func bidsOf(st *state, auctionID string) []*domain.Bid {
	out := make([]*domain.Bid, 0)
	for _, b := range st.bids {
		if b.AuctionID == auctionID {
			c := b
			out = append(out, &c)
		}
	}
	return out
}
