package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// DurationRequest is the auction length, e.g. {"value": 3, "unit": "days"}.
type DurationRequest struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// CreateAuctionRequest represents a request to list an item.
type CreateAuctionRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Condition     string          `json:"condition"`
	Media         domain.Media    `json:"media"`
	Verified      bool            `json:"verified"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	Duration      DurationRequest `json:"duration"`
}

// ToUseCaseInput converts to use case input for sellerID.
func (r *CreateAuctionRequest) ToUseCaseInput(sellerID string) (usecase.CreateAuctionInput, error) {
	condition, err := domain.ParseCondition(r.Condition)
	if err != nil {
		return usecase.CreateAuctionInput{}, err
	}

	return usecase.CreateAuctionInput{
		SellerID:      sellerID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Condition:     condition,
		Media:         r.Media,
		Verified:      r.Verified,
		StartingPrice: r.StartingPrice,
		Duration: domain.DurationSpec{
			Value: r.Duration.Value,
			Unit:  domain.DurationUnit(r.Duration.Unit),
		},
	}, nil
}

// PlaceBidRequest represents a bid on an auction.
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *PlaceBidRequest) ToUseCaseInput(userID, auctionID string) usecase.PlaceBidInput {
	return usecase.PlaceBidInput{
		UserID:    userID,
		AuctionID: auctionID,
		Amount:    r.Amount,
	}
}

// DepositRequest represents funds added to the caller's wallet.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// VerifyListingRequest asks for a listing to be screened.
type VerifyListingRequest struct {
	Media       domain.Media `json:"media"`
	Description string       `json:"description"`
}
