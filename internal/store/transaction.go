package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/visionsmith/argus-api/internal/platform/logger"
)

// TxFn runs inside a transaction. A nil return commits; an error rolls
// back and is returned to the caller.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction wraps fn in a transaction with rollback on error and
// on panic. Panics are re-raised after the rollback so callers see the
// original failure.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					"error", rbErr, "panic", p)
			} else {
				log.Error("rolled back transaction after panic", "panic", p)
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				"rollback_error", rbErr,
				"original_error", err)
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		log.Debug("rolled back transaction", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
