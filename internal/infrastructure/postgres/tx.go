package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hszk-dev/clipforge/internal/domain/repository"
)

// TxBeginner abstracts the pool's transaction entry point for testability.
// Both pgxpool.Pool and pgxmock satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner implements repository.TxRunner over a pgx connection pool. Each
// WithinTx call runs the closure against a transaction-scoped repository;
// commit happens only when the closure returns nil.
type TxRunner struct {
	db TxBeginner
}

// NewTxRunner creates a TxRunner over the given pool.
func NewTxRunner(db TxBeginner) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx runs fn inside a transaction. The transaction is rolled back on
// any error or panic and committed otherwise.
func (t *TxRunner) WithinTx(ctx context.Context, fn func(repo repository.VideoRepository) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(NewVideoRepository(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Compile-time verification that TxRunner implements repository.TxRunner.
var _ repository.TxRunner = (*TxRunner)(nil)
