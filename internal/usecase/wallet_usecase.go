package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/infrastructure/metrics"
)

// WalletUseCase handles wallet funding and reads.
type WalletUseCase struct {
	txManager  TransactionManager
	retrier    Retrier
	ledger     *Ledger
	walletRepo WalletRepository
	txnRepo    WalletTransactionRepository
	clock      Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TransactionManager,
	retrier Retrier,
	ledger *Ledger,
	walletRepo WalletRepository,
	txnRepo WalletTransactionRepository,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:  txManager,
		retrier:    retrier,
		ledger:     ledger,
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Deposit adds funds to the caller's wallet.
func (uc *WalletUseCase) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.WalletTransaction, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var txn *domain.WalletTransaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		txn, err = uc.ledger.Deposit(ctx, tx, userID, amount, uc.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Deposits.Inc()
	}
	uc.logger.Info().
		Str("user_id", userID).
		Str("amount", amount.String()).
		Str("balance", txn.BalanceAfter.String()).
		Msg("wallet deposit")

	return txn, nil
}

// GetWallet returns the caller's wallet.
func (uc *WalletUseCase) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}

	return wallet, nil
}

// ListTransactionsInput represents input for listing wallet transactions.
type ListTransactionsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListTransactions lists the caller's wallet log, newest first.
func (uc *WalletUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.WalletTransaction, error) {
	if input.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	txns, err := uc.txnRepo.ListByUser(ctx, input.UserID, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}

	return txns, nil
}
