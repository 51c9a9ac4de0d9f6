package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	store *Store
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(store *Store) *WalletRepository {
	return &WalletRepository{store: store}
}

// Create inserts wallet unless the user already has one.
func (r *WalletRepository) Create(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.wallets[wallet.UserID]; !ok {
		st.wallets[wallet.UserID] = *wallet
	}
	return nil
}

// GetByUserID retrieves a committed wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var (
		w  domain.Wallet
		ok bool
	)
	r.store.read(func(st *state) { w, ok = st.wallets[userID] })
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

// GetByUserIDForUpdate retrieves a wallet inside tx.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Wallet, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}
	w, ok := st.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

// UpdateBalance sets the wallet balance.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, userID string, balance decimal.Decimal, updatedAt time.Time) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	w, ok := st.wallets[userID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	w.Balance = balance
	w.Version++
	w.UpdatedAt = updatedAt
	st.wallets[userID] = w
	return nil
}

// WalletTransactionRepository implements usecase.WalletTransactionRepository.
type WalletTransactionRepository struct {
	store *Store
}

// NewWalletTransactionRepository creates a new WalletTransactionRepository.
func NewWalletTransactionRepository(store *Store) *WalletTransactionRepository {
	return &WalletTransactionRepository{store: store}
}

// Create appends txn to the log.
func (r *WalletTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.WalletTransaction) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if txn.Kind == domain.TransactionRefund && txn.BidID != nil {
		if _, ok := st.refunded[*txn.BidID]; ok {
			return domain.ErrAlreadyRefunded
		}
		st.refunded[*txn.BidID] = struct{}{}
	}
	st.txns = append(st.txns, *txn)
	return nil
}

// ListByUser returns a user's log, newest first.
func (r *WalletTransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	var out []*domain.WalletTransaction
	r.store.read(func(st *state) {
		for i := len(st.txns) - 1; i >= 0; i-- {
			if st.txns[i].UserID == userID {
				t := st.txns[i]
				out = append(out, &t)
			}
		}
	})
	return page(out, limit, offset), nil
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// WalletTotals returns every wallet's balance next to the sum of its log.
func (r *LedgerRepository) WalletTotals(ctx context.Context) ([]domain.WalletTotals, error) {
	var totals []domain.WalletTotals
	r.store.read(func(st *state) {
		sums := make(map[string]decimal.Decimal, len(st.wallets))
		for _, t := range st.txns {
			sums[t.UserID] = sums[t.UserID].Add(t.Amount)
		}
		for userID, w := range st.wallets {
			totals = append(totals, domain.WalletTotals{
				UserID:  userID,
				Balance: w.Balance,
				LogSum:  sums[userID],
			})
		}
	})

	sort.Slice(totals, func(i, j int) bool { return totals[i].UserID < totals[j].UserID })
	return totals, nil
}
