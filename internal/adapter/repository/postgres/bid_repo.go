package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

const bidColumns = `id, auction_id, user_id, amount, reserved, created_at`

// BidRepository implements usecase.BidRepository.
type BidRepository struct {
	db DBTX
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(db DBTX) *BidRepository {
	return &BidRepository{db: db}
}

// Create records a bid within a transaction.
func (r *BidRepository) Create(ctx context.Context, tx usecase.Transaction, bid *domain.Bid) error {
	_, err := txConn(tx).Exec(ctx, `
		INSERT INTO bids (`+bidColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		bid.ID, bid.AuctionID, bid.UserID, decimalToNumeric(bid.Amount), decimalToNumeric(bid.Reserved),
		timeToPgTimestamptz(bid.CreatedAt),
	)

	return err
}

// ListByAuction returns an auction's bids in insertion order.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	return listBidsByAuction(ctx, r.db, auctionID)
}

// ListByAuctionTx returns an auction's bids as seen by tx.
func (r *BidRepository) ListByAuctionTx(ctx context.Context, tx usecase.Transaction, auctionID string) ([]*domain.Bid, error) {
	return listBidsByAuction(ctx, txConn(tx), auctionID)
}

// ListByUser returns a user's bids, newest first.
func (r *BidRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Bid, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectBids(rows)
}

func listBidsByAuction(ctx context.Context, db DBTX, auctionID string) ([]*domain.Bid, error) {
	rows, err := db.Query(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE auction_id = $1
		ORDER BY created_at, id`,
		auctionID,
	)
	if err != nil {
		return nil, err
	}

	return collectBids(rows)
}

func collectBids(rows pgx.Rows) ([]*domain.Bid, error) {
	defer rows.Close()

	bids := make([]*domain.Bid, 0)
	for rows.Next() {
		var (
			b        domain.Bid
			amount   pgtype.Numeric
			reserved pgtype.Numeric
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.UserID, &amount, &reserved, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Amount = numericToDecimal(amount)
		b.Reserved = numericToDecimal(reserved)
		bids = append(bids, &b)
	}

	return bids, rows.Err()
}
