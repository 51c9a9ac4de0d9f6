package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

const walletColumns = `user_id, balance, version, created_at, updated_at`

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	db DBTX
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create inserts wallet unless the user already has one.
func (r *WalletRepository) Create(ctx context.Context, tx usecase.Transaction, w *domain.Wallet) error {
	_, err := txConn(tx).Exec(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		w.UserID, decimalToNumeric(w.Balance), w.Version,
		timeToPgTimestamptz(w.CreatedAt), timeToPgTimestamptz(w.UpdatedAt),
	)

	return err
}

// GetByUserID retrieves a wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

// GetByUserIDForUpdate retrieves a wallet and locks its row until tx ends.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Wallet, error) {
	row := txConn(tx).QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

// UpdateBalance sets the wallet balance.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, userID string, balance decimal.Decimal, updatedAt time.Time) error {
	tag, err := txConn(tx).Exec(ctx, `
		UPDATE wallets SET balance = $2, updated_at = $3, version = version + 1
		WHERE user_id = $1`,
		userID, decimalToNumeric(balance), timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}

	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance pgtype.Numeric
	)

	err := row.Scan(&w.UserID, &balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	w.Balance = numericToDecimal(balance)

	return &w, nil
}
