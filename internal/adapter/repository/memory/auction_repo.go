package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// AuctionRepository implements usecase.AuctionRepository.
type AuctionRepository struct {
	store *Store
}

// NewAuctionRepository creates a new AuctionRepository.
func NewAuctionRepository(store *Store) *AuctionRepository {
	return &AuctionRepository{store: store}
}

// Create stores a new auction.
func (r *AuctionRepository) Create(ctx context.Context, tx usecase.Transaction, auction *domain.Auction) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.auctions[auction.ID]; ok {
		return fmt.Errorf("memory: auction %s already exists", auction.ID)
	}
	st.auctions[auction.ID] = *auction
	return nil
}

// GetByID retrieves a committed auction.
func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*domain.Auction, error) {
	var (
		a  domain.Auction
		ok bool
	)
	r.store.read(func(st *state) { a, ok = st.auctions[id] })
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return &a, nil
}

// GetByIDForUpdate retrieves an auction inside tx. The transaction already
// holds the store's writer slot.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Auction, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}
	a, ok := st.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return &a, nil
}

// Update overwrites the mutable fields of an auction.
func (r *AuctionRepository) Update(ctx context.Context, tx usecase.Transaction, auction *domain.Auction) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.auctions[auction.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	updated := *auction
	updated.Version++
	st.auctions[auction.ID] = updated
	auction.Version = updated.Version
	return nil
}

// ListActive returns open auctions matching filter, newest first.
func (r *AuctionRepository) ListActive(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	return r.list(func(a *domain.Auction) bool { return filter.Matches(a) }, filter.Limit, filter.Offset), nil
}

// ListBySeller returns a seller's auctions, newest first.
func (r *AuctionRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*domain.Auction, error) {
	return r.list(func(a *domain.Auction) bool { return a.SellerID == sellerID }, limit, offset), nil
}

// ListExpiredIDs returns ACTIVE auctions past their end time, earliest deadline first.
func (r *AuctionRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var expired []domain.Auction
	r.store.read(func(st *state) {
		for _, a := range st.auctions {
			if a.HasExpired(now) {
				expired = append(expired, a)
			}
		}
	})

	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].EndTime.Equal(expired[j].EndTime) {
			return expired[i].EndTime.Before(expired[j].EndTime)
		}
		return expired[i].ID < expired[j].ID
	})

	ids := make([]string, 0, len(expired))
	for _, a := range expired {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r *AuctionRepository) list(match func(*domain.Auction) bool, limit, offset int) []*domain.Auction {
	var out []*domain.Auction
	r.store.read(func(st *state) {
		for _, a := range st.auctions {
			if match(&a) {
				c := a
				out = append(out, &c)
			}
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return page(out, limit, offset)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
