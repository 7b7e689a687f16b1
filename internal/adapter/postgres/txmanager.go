package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxManager runs units of work in a transaction carried by the context.
// Repositories pick the transaction up through QuerierFromCtx.
type TxManager struct {
	db DB
}

// NewTxManager creates a TxManager over db.
func NewTxManager(db DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx executes fn within a Read Committed transaction. The transaction
// commits when fn returns nil and rolls back on error or panic; a panic is
// re-raised after the rollback.
//
// When ctx already carries a transaction, fn joins it: no savepoint is
// taken and the outer call decides whether the work commits.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("rollback: %w (after: %v)", classify(rbErr), err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}
