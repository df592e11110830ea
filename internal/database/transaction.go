package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
)

// WithTransaction executes a function within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping automatically.
// If the function returns an error or panics, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) error {
	return withTx(context.Background(), db, fn)
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// UnitOfWork runs mutating operations as retryable transactions
type UnitOfWork struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
}

// NewUnitOfWork creates a unit of work over db. maxAttempts < 1 is treated as 1.
func NewUnitOfWork(db *sql.DB, maxAttempts int) *UnitOfWork {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &UnitOfWork{db: db, maxAttempts: maxAttempts, backoff: 10 * time.Millisecond}
}

// Run executes fn inside a transaction. Version conflicts and lock contention
// roll back and run fn again on a fresh transaction, up to maxAttempts; after
// that the failure is surfaced as domain.ErrConcurrentModification. Any other
// error rolls back and returns immediately.
func (u *UnitOfWork) Run(ctx context.Context, fn func(*sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = withTx(ctx, u.db, fn)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < u.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(u.backoff * time.Duration(attempt)):
			}
		}
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", domain.ErrConcurrentModification, u.maxAttempts, lastErr)
}

// Querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a unit of work
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
