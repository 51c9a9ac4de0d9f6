package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// AuctionResponse represents an auction in API responses.
type AuctionResponse struct {
	ID            string          `json:"id"`
	SellerID      string          `json:"seller_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Condition     string          `json:"condition"`
	Media         domain.Media    `json:"media"`
	Verified      bool            `json:"verified"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	EndTime       time.Time       `json:"end_time"`
	Status        string          `json:"status"`
	WinnerID      *string         `json:"winner_id,omitempty"`
	BidCount      int             `json:"bid_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AuctionFromDomain converts domain auction to response.
func AuctionFromDomain(a *domain.Auction) *AuctionResponse {
	return &AuctionResponse{
		ID:            a.ID,
		SellerID:      a.SellerID,
		Title:         a.Title,
		Description:   a.Description,
		Category:      a.Category,
		Condition:     string(a.Condition),
		Media:         a.Media,
		Verified:      a.Verified,
		StartingPrice: a.StartingPrice,
		CurrentPrice:  a.CurrentPrice,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		WinnerID:      a.WinnerID,
		BidCount:      a.BidCount,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AuctionsFromDomain converts domain auctions to responses.
func AuctionsFromDomain(auctions []*domain.Auction) []*AuctionResponse {
	result := make([]*AuctionResponse, len(auctions))
	for i, a := range auctions {
		result[i] = AuctionFromDomain(a)
	}
	return result
}

// AuctionDetailResponse is an auction with its bids, highest first.
type AuctionDetailResponse struct {
	*AuctionResponse
	Bids []*BidResponse `json:"bids"`
}

// AuctionDetailFromUseCase converts an auction detail to response.
func AuctionDetailFromUseCase(d *usecase.AuctionDetail) *AuctionDetailResponse {
	return &AuctionDetailResponse{
		AuctionResponse: AuctionFromDomain(d.Auction),
		Bids:            BidsFromDomain(d.Bids),
	}
}

// BidResponse represents a bid in API responses.
type BidResponse struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reserved  decimal.Decimal `json:"reserved"`
	CreatedAt time.Time       `json:"created_at"`
}

// BidFromDomain converts domain bid to response.
func BidFromDomain(b *domain.Bid) *BidResponse {
	return &BidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		UserID:    b.UserID,
		Amount:    b.Amount,
		Reserved:  b.Reserved,
		CreatedAt: b.CreatedAt,
	}
}

// BidsFromDomain converts domain bids to responses.
func BidsFromDomain(bids []*domain.Bid) []*BidResponse {
	result := make([]*BidResponse, len(bids))
	for i, b := range bids {
		result[i] = BidFromDomain(b)
	}
	return result
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletFromDomain converts domain wallet to response.
func WalletFromDomain(w *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		UserID:    w.UserID,
		Balance:   w.Balance,
		Version:   w.Version,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// WalletTransactionResponse represents a wallet log entry in API responses.
type WalletTransactionResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	AuctionID    *string         `json:"auction_id,omitempty"`
	BidID        *string         `json:"bid_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WalletTransactionFromDomain converts a wallet transaction to response.
func WalletTransactionFromDomain(t *domain.WalletTransaction) *WalletTransactionResponse {
	return &WalletTransactionResponse{
		ID:           t.ID,
		UserID:       t.UserID,
		Kind:         string(t.Kind),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		AuctionID:    t.AuctionID,
		BidID:        t.BidID,
		CreatedAt:    t.CreatedAt,
	}
}

// WalletTransactionsFromDomain converts wallet transactions to responses.
func WalletTransactionsFromDomain(txns []*domain.WalletTransaction) []*WalletTransactionResponse {
	result := make([]*WalletTransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = WalletTransactionFromDomain(t)
	}
	return result
}

// SettlementResponse describes a closed auction.
type SettlementResponse struct {
	Auction    *AuctionResponse             `json:"auction"`
	WinningBid *BidResponse                 `json:"winning_bid,omitempty"`
	Refunds    []*WalletTransactionResponse `json:"refunds"`
	Trigger    string                       `json:"trigger"`
}

// SettlementFromUseCase converts a settlement result to response.
func SettlementFromUseCase(r *usecase.SettlementResult) *SettlementResponse {
	resp := &SettlementResponse{
		Auction: AuctionFromDomain(r.Auction),
		Refunds: WalletTransactionsFromDomain(r.Refunds),
		Trigger: string(r.Trigger),
	}
	if r.WinningBid != nil {
		resp.WinningBid = BidFromDomain(r.WinningBid)
	}
	return resp
}

// WalletDiscrepancy is a wallet whose balance disagrees with its log.
type WalletDiscrepancy struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	LogSum  decimal.Decimal `json:"log_sum"`
}

// ReconciliationResponse is the result of a ledger consistency check.
type ReconciliationResponse struct {
	Consistent     bool                `json:"consistent"`
	WalletsChecked int                 `json:"wallets_checked"`
	Discrepancies  []WalletDiscrepancy `json:"discrepancies"`
	CheckedAt      time.Time           `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		Consistent:     r.Consistent,
		WalletsChecked: r.WalletsChecked,
		Discrepancies:  make([]WalletDiscrepancy, len(r.Discrepancies)),
		CheckedAt:      r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = WalletDiscrepancy{UserID: d.UserID, Balance: d.Balance, LogSum: d.LogSum}
	}
	return resp
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents an error in API responses. Error carries the
// machine readable kind, Message the human readable reason.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
