// Package memory is an in-process implementation of the usecase storage
// ports. Transactions are serialized: Begin takes the store's single writer
// slot and works on a private copy of the state that Commit publishes.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/iho/goauction/internal/domain"
	"github.com/iho/goauction/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

type state struct {
	auctions map[string]domain.Auction
	bids     []domain.Bid
	wallets  map[string]domain.Wallet
	txns     []domain.WalletTransaction
	refunded map[string]struct{} // bid IDs with a REFUND
	outbox   []domain.OutboxEvent
}

func newState() *state {
	return &state{
		auctions: make(map[string]domain.Auction),
		wallets:  make(map[string]domain.Wallet),
		refunded: make(map[string]struct{}),
	}
}

func (s *state) clone() *state {
	return &state{
		auctions: maps.Clone(s.auctions),
		bids:     slices.Clone(s.bids),
		wallets:  maps.Clone(s.wallets),
		txns:     slices.Clone(s.txns),
		refunded: maps.Clone(s.refunded),
		outbox:   slices.Clone(s.outbox),
	}
}

// Store holds the committed state.
type Store struct {
	writer chan struct{}

	mu        sync.RWMutex
	committed *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		writer:    make(chan struct{}, 1),
		committed: newState(),
	}
}

// Begin implements usecase.TransactionManager. It blocks until no other
// transaction is open or ctx is done.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	working := s.committed.clone()
	s.mu.RUnlock()

	return &Tx{store: s, state: working}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.writer }

// read runs fn against the committed state.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write runs fn as a single-statement transaction.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx.(*Tx).state); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Tx is an open memory transaction.
type Tx struct {
	store *Store
	state *state
	done  bool
}

// Commit publishes the transaction's state.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.store.mu.Lock()
	t.store.committed = t.state
	t.store.mu.Unlock()

	t.store.release()
	return nil
}

// Rollback discards the transaction's state. Rolling back a finished
// transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.release()
	return nil
}

func stateOf(tx usecase.Transaction) (*state, error) {
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, errors.New("memory: foreign transaction")
	}
	if mtx.done {
		return nil, ErrTxDone
	}
	return mtx.state, nil
}
