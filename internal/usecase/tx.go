package usecase

import (
	"context"
	"fmt"

	"github.com/iho/goauction/internal/domain"
)

// runInTx runs fn inside a transaction that is committed when fn succeeds
// and rolled back otherwise. With a retrier, the whole transaction is
// re-run on transient storage errors.
func runInTx(ctx context.Context, txManager TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	operation := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	var err error
	if retrier != nil {
		err = retrier.Retry(ctx, operation)
	} else {
		err = operation()
	}

	return storageError(err)
}

// storageError classifies errors that carry no domain meaning as storage failures.
func storageError(err error) error {
	if err == nil || domain.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}
