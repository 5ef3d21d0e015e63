package database

import (
	"context"
	"database/sql"
	"fmt"
)

// RunInTransaction is the single transaction-scope primitive: fn runs inside
// one transaction which commits when fn returns nil and rolls back on any
// error or panic. A transaction is the unit of mutual exclusion for
// multi-statement invariants and must never be held across broker or cache I/O.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
