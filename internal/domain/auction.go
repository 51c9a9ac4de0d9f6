package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. ENDED is terminal.
type AuctionStatus string

const (
	AuctionStatusActive AuctionStatus = "ACTIVE"
	AuctionStatusEnded  AuctionStatus = "ENDED"
)

// Auction represents a single listed item with a deadline and a current highest price.
type Auction struct {
	ID            string
	SellerID      string
	Title         string
	Description   string
	Category      string
	Condition     Condition
	Media         Media
	Verified      bool
	StartingPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	EndTime       time.Time
	Status        AuctionStatus
	WinnerID      *string
	BidCount      int
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAuctionParams holds the seller supplied fields of a new listing.
type NewAuctionParams struct {
	ID            string
	SellerID      string
	Title         string
	Description   string
	Category      string
	Condition     Condition
	Media         Media
	Verified      bool
	StartingPrice decimal.Decimal
	Duration      DurationSpec
	Now           time.Time
}

// NewAuction validates params and returns an ACTIVE auction priced at its starting price.
func NewAuction(p NewAuctionParams) (*Auction, error) {
	if p.SellerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := ValidateListing(p.Title, p.Description, p.Category); err != nil {
		return nil, err
	}
	if err := p.Condition.Validate(); err != nil {
		return nil, err
	}
	if err := p.Media.Validate(); err != nil {
		return nil, err
	}
	if !p.StartingPrice.IsPositive() {
		return nil, fmt.Errorf("%w: starting price must be greater than 0", ErrInvalidInput)
	}
	if err := ValidateAmount(p.StartingPrice); err != nil {
		return nil, err
	}

	endTime, err := p.Duration.EndTime(p.Now)
	if err != nil {
		return nil, err
	}

	return &Auction{
		ID:            p.ID,
		SellerID:      p.SellerID,
		Title:         p.Title,
		Description:   p.Description,
		Category:      p.Category,
		Condition:     p.Condition,
		Media:         p.Media,
		Verified:      p.Verified,
		StartingPrice: p.StartingPrice,
		CurrentPrice:  p.StartingPrice,
		EndTime:       endTime,
		Status:        AuctionStatusActive,
		CreatedAt:     p.Now,
		UpdatedAt:     p.Now,
	}, nil
}

// IsOpen reports whether the auction still accepts bids at now.
func (a *Auction) IsOpen(now time.Time) bool {
	return a.Status == AuctionStatusActive && now.Before(a.EndTime)
}

// HasExpired reports whether the auction is ACTIVE with its deadline reached.
func (a *Auction) HasExpired(now time.Time) bool {
	return a.Status == AuctionStatusActive && !now.Before(a.EndTime)
}

// CheckBid validates a bid of amount from bidderID without mutating the auction.
func (a *Auction) CheckBid(bidderID string, amount decimal.Decimal, now time.Time) error {
	if a.SellerID == bidderID {
		return ErrSelfBid
	}
	if a.Status != AuctionStatusActive {
		return fmt.Errorf("%w: auction %s has ended", ErrAuctionNotActive, a.ID)
	}
	if !now.Before(a.EndTime) {
		return fmt.Errorf("%w: auction %s closed at %s", ErrAuctionNotActive, a.ID, a.EndTime.Format(time.RFC3339))
	}
	if amount.LessThanOrEqual(a.CurrentPrice) {
		return fmt.Errorf("%w: current price is %s", ErrBidTooLow, a.CurrentPrice.StringFixed(2))
	}
	return nil
}

// AcceptBid applies an already reserved bid and advances the current price.
func (a *Auction) AcceptBid(bidderID string, amount decimal.Decimal, now time.Time) error {
	if err := a.CheckBid(bidderID, amount, now); err != nil {
		return err
	}
	a.CurrentPrice = amount
	a.BidCount++
	a.UpdatedAt = now
	return nil
}

// Close ends the auction. winnerID is nil when nobody bid.
func (a *Auction) Close(winnerID *string, now time.Time) error {
	if a.Status != AuctionStatusActive {
		return fmt.Errorf("%w: auction %s", ErrAlreadyEnded, a.ID)
	}
	a.Status = AuctionStatusEnded
	a.WinnerID = winnerID
	a.UpdatedAt = now
	return nil
}

// CollateralPlaces is the precision of every held amount, matching the
// two decimal places balances and transactions are stored with.
const CollateralPlaces = 2

// Collateral returns the funds reserved for a bid of amount at the given ratio,
// rounded up to whole cents.
func Collateral(amount, ratio decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratio).RoundUp(CollateralPlaces)
}
