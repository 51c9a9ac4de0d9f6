package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

const refundPerBidIndex = "uq_wallet_transactions_refund_bid"

// WalletTransactionRepository implements usecase.WalletTransactionRepository.
type WalletTransactionRepository struct {
	db DBTX
}

// NewWalletTransactionRepository creates a new WalletTransactionRepository.
func NewWalletTransactionRepository(db DBTX) *WalletTransactionRepository {
	return &WalletTransactionRepository{db: db}
}

// Create appends txn to the wallet log.
func (r *WalletTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.WalletTransaction) error {
	_, err := txConn(tx).Exec(ctx, `
		INSERT INTO wallet_transactions (id, user_id, kind, amount, balance_after, description, auction_id, bid_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.UserID, string(txn.Kind), decimalToNumeric(txn.Amount), decimalToNumeric(txn.BalanceAfter),
		txn.Description, textOrNull(txn.AuctionID), textOrNull(txn.BidID), timeToPgTimestamptz(txn.CreatedAt),
	)
	if isUniqueViolation(err, refundPerBidIndex) {
		return domain.ErrAlreadyRefunded
	}

	return err
}

// ListByUser returns a user's log, newest first.
func (r *WalletTransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, amount, balance_after, description, auction_id, bid_id, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*domain.WalletTransaction, 0)
	for rows.Next() {
		var (
			t            domain.WalletTransaction
			kind         string
			amount       pgtype.Numeric
			balanceAfter pgtype.Numeric
			auctionID    pgtype.Text
			bidID        pgtype.Text
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &amount, &balanceAfter, &t.Description, &auctionID, &bidID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = domain.TransactionKind(kind)
		t.Amount = numericToDecimal(amount)
		t.BalanceAfter = numericToDecimal(balanceAfter)
		t.AuctionID = nullableText(auctionID)
		t.BidID = nullableText(bidID)
		txns = append(txns, &t)
	}

	return txns, rows.Err()
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WalletTotals returns every wallet's balance next to the sum of its log.
func (r *LedgerRepository) WalletTotals(ctx context.Context) ([]domain.WalletTotals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT w.user_id, w.balance, COALESCE(SUM(t.amount), 0)
		FROM wallets w
		LEFT JOIN wallet_transactions t ON t.user_id = w.user_id
		GROUP BY w.user_id, w.balance
		ORDER BY w.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]domain.WalletTotals, 0)
	for rows.Next() {
		var (
			userID  string
			balance pgtype.Numeric
			logSum  pgtype.Numeric
		)
		if err := rows.Scan(&userID, &balance, &logSum); err != nil {
			return nil, err
		}
		totals = append(totals, domain.WalletTotals{
			UserID:  userID,
			Balance: numericToDecimal(balance),
			LogSum:  numericToDecimal(logSum),
		})
	}

	return totals, rows.Err()
}
