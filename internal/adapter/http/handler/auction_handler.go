package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// AuctionService defines the behavior needed by AuctionHandler.
type AuctionService interface {
	CreateAuction(ctx context.Context, input usecase.CreateAuctionInput) (*domain.Auction, error)
	GetAuction(ctx context.Context, id string) (*usecase.AuctionDetail, error)
	ListActiveAuctions(ctx context.Context, input usecase.ListAuctionsInput) ([]*domain.Auction, error)
	GetUserAuctions(ctx context.Context, userID string, limit, offset int) ([]*domain.Auction, error)
	GetUserBids(ctx context.Context, userID string, limit, offset int) ([]*domain.Bid, error)
	VerifyListing(ctx context.Context, media domain.Media, description string) (*domain.Verification, error)
}

// AuctionHandler handles listing and browsing requests.
type AuctionHandler struct {
	auctionUC AuctionService
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(auctionUC AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionUC: auctionUC}
}

// Create lists a new item with the caller as seller.
func (h *AuctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAuctionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seller := callerID(r)
	if seller == "" {
		writeDomainError(w, domain.ErrUnauthenticated)
		return
	}

	input, err := req.ToUseCaseInput(seller)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	auction, err := h.auctionUC.CreateAuction(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuctionFromDomain(auction))
}

// Get returns an auction with its bids.
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "missing auction ID")
		return
	}

	detail, err := h.auctionUC.GetAuction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuctionDetailFromUseCase(detail))
}

// List browses open auctions.
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	q := r.URL.Query()

	auctions, err := h.auctionUC.ListActiveAuctions(r.Context(), usecase.ListAuctionsInput{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.AuctionResponse]{
		Items:  dto.AuctionsFromDomain(auctions),
		Limit:  limit,
		Offset: offset,
	})
}

// ListMine returns the caller's listings.
func (h *AuctionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)

	auctions, err := h.auctionUC.GetUserAuctions(r.Context(), callerID(r), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.AuctionResponse]{
		Items:  dto.AuctionsFromDomain(auctions),
		Limit:  limit,
		Offset: offset,
	})
}

// ListMyBids returns the caller's bids, newest first.
func (h *AuctionHandler) ListMyBids(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)

	bids, err := h.auctionUC.GetUserBids(r.Context(), callerID(r), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.BidResponse]{
		Items:  dto.BidsFromDomain(bids),
		Limit:  limit,
		Offset: offset,
	})
}

// Verify screens listing media without creating an auction.
func (h *AuctionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auctionUC.VerifyListing(r.Context(), req.Media, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
