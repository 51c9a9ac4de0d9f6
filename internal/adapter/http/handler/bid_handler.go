package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// BiddingService defines the behavior needed by BidHandler.
type BiddingService interface {
	PlaceBid(ctx context.Context, input usecase.PlaceBidInput) (*domain.Bid, error)
}

// SettlementService defines the behavior needed by BidHandler.Settle.
type SettlementService interface {
	SettleAuction(ctx context.Context, callerID, auctionID string) (*usecase.SettlementResult, error)
}

// BidHandler handles bidding and seller settlement requests.
type BidHandler struct {
	biddingUC    BiddingService
	settlementUC SettlementService
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(biddingUC BiddingService, settlementUC SettlementService) *BidHandler {
	return &BidHandler{
		biddingUC:    biddingUC,
		settlementUC: settlementUC,
	}
}

// Place places a bid on behalf of the caller.
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bid, err := h.biddingUC.PlaceBid(r.Context(), req.ToUseCaseInput(callerID(r), chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BidFromDomain(bid))
}

// Settle closes the auction early on behalf of its seller.
func (h *BidHandler) Settle(w http.ResponseWriter, r *http.Request) {
	result, err := h.settlementUC.SettleAuction(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromUseCase(result))
}
