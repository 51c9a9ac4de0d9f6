package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.WalletTransaction, error)
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.WalletTransaction, error)
}

// WalletHandler handles the caller's wallet.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Get returns the caller's wallet.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.walletUC.GetWallet(r.Context(), callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// ListTransactions returns the caller's wallet log, newest first.
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)

	txns, err := h.walletUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		UserID: callerID(r),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.WalletTransactionResponse]{
		Items:  dto.WalletTransactionsFromDomain(txns),
		Limit:  limit,
		Offset: offset,
	})
}

// Deposit funds the caller's wallet.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txn, err := h.walletUC.Deposit(r.Context(), callerID(r), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.WalletTransactionFromDomain(txn))
}
