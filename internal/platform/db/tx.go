package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithReadOnlyTx runs fn inside a read-only RepeatableRead transaction so
// every query issued by fn observes the same snapshot. The transaction is
// always rolled back; there is nothing to commit.
func WithReadOnlyTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("platform/db: begin read-only tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	return fn(tx)
}
