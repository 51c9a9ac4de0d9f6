package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

const auctionColumns = `id, seller_id, title, description, category, condition, media, verified,
	starting_price, current_price, end_time, status, winner_id, bid_count, version, created_at, updated_at`

// AuctionRepository implements usecase.AuctionRepository.
type AuctionRepository struct {
	db DBTX
}

// NewAuctionRepository creates a new AuctionRepository.
func NewAuctionRepository(db DBTX) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create inserts a new auction within a transaction.
func (r *AuctionRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.Auction) error {
	media, err := encodeMedia(a.Media)
	if err != nil {
		return err
	}

	_, err = txConn(tx).Exec(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.SellerID, a.Title, a.Description, a.Category, string(a.Condition), media, a.Verified,
		decimalToNumeric(a.StartingPrice), decimalToNumeric(a.CurrentPrice), timeToPgTimestamptz(a.EndTime),
		string(a.Status), textOrNull(a.WinnerID), a.BidCount, a.Version,
		timeToPgTimestamptz(a.CreatedAt), timeToPgTimestamptz(a.UpdatedAt),
	)

	return err
}

// GetByID retrieves an auction by ID.
func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*domain.Auction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	return scanAuctionRow(row)
}

// GetByIDForUpdate retrieves an auction and locks its row until tx ends.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Auction, error) {
	row := txConn(tx).QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id)
	return scanAuctionRow(row)
}

// Update writes the mutable fields of an auction and bumps its version.
func (r *AuctionRepository) Update(ctx context.Context, tx usecase.Transaction, a *domain.Auction) error {
	var version int64

	err := txConn(tx).QueryRow(ctx, `
		UPDATE auctions
		SET current_price = $2, status = $3, winner_id = $4, bid_count = $5, updated_at = $6, version = version + 1
		WHERE id = $1
		RETURNING version`,
		a.ID, decimalToNumeric(a.CurrentPrice), string(a.Status), textOrNull(a.WinnerID), a.BidCount,
		timeToPgTimestamptz(a.UpdatedAt),
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAuctionNotFound
	}
	if err != nil {
		return err
	}

	a.Version = version

	return nil
}

// ListActive returns open auctions matching filter, newest first.
func (r *AuctionRepository) ListActive(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	query, args := activeAuctionsQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return collectAuctions(rows)
}

// ListBySeller returns a seller's auctions, newest first.
func (r *AuctionRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*domain.Auction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		sellerID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectAuctions(rows)
}

// ListExpiredIDs returns ACTIVE auctions past their end time, earliest deadline first.
func (r *AuctionRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM auctions
		WHERE status = 'ACTIVE' AND end_time <= $1
		ORDER BY end_time, id
		LIMIT $2`,
		timeToPgTimestamptz(now), limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func activeAuctionsQuery(f domain.AuctionFilter) (string, []any) {
	var b strings.Builder
	args := []any{timeToPgTimestamptz(f.Now)}

	b.WriteString(`SELECT ` + auctionColumns + ` FROM auctions WHERE status = 'ACTIVE' AND end_time > $1`)

	if f.Category != "" && !strings.EqualFold(f.Category, domain.CategoryAll) {
		args = append(args, f.Category)
		fmt.Fprintf(&b, ` AND lower(category) = lower($%d)`, len(args))
	}

	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		fmt.Fprintf(&b, ` AND (title ILIKE $%[1]d OR description ILIKE $%[1]d)`, len(args))
	}

	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&b, ` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func collectAuctions(rows pgx.Rows) ([]*domain.Auction, error) {
	defer rows.Close()

	auctions := make([]*domain.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}

	return auctions, rows.Err()
}

func scanAuctionRow(row pgx.Row) (*domain.Auction, error) {
	a, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAuctionNotFound
	}
	return a, err
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var (
		a             domain.Auction
		condition     string
		status        string
		media         []byte
		startingPrice pgtype.Numeric
		currentPrice  pgtype.Numeric
		winnerID      pgtype.Text
	)

	err := row.Scan(
		&a.ID, &a.SellerID, &a.Title, &a.Description, &a.Category, &condition, &media, &a.Verified,
		&startingPrice, &currentPrice, &a.EndTime, &status, &winnerID, &a.BidCount, &a.Version,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(media) > 0 {
		if err := json.Unmarshal(media, &a.Media); err != nil {
			return nil, fmt.Errorf("decode media of auction %s: %w", a.ID, err)
		}
	}

	a.Condition = domain.Condition(condition)
	a.Status = domain.AuctionStatus(status)
	a.StartingPrice = numericToDecimal(startingPrice)
	a.CurrentPrice = numericToDecimal(currentPrice)
	a.WinnerID = nullableText(winnerID)

	return &a, nil
}

func encodeMedia(m domain.Media) ([]byte, error) {
	if m.IsZero() {
		return nil, nil
	}
	return json.Marshal(m)
}
