package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var ErrRetryLimit = errors.New("transaction retry limit exceeded")

const maxAttempts = 5

// TxRunner is the unit of work handed to the services. Everything fn does
// through the transaction commits or rolls back together.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTxRunner(db *sqlx.DB, logger *zap.Logger) SQLXTxRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return SQLXTxRunner{db: db, logger: logger}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return withTx(ctx, r.db, r.logger, fn)
}

type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

func Connect(ctx context.Context, databaseURL string, opts PoolOptions) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 30
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	return withTx(ctx, db, zap.NewNop(), fn)
}

func withTx(ctx context.Context, db *sqlx.DB, logger *zap.Logger, fn func(*sqlx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if !isRetryablePGError(err) {
				return err
			}
			lastErr = err
		} else if err := tx.Commit(); err != nil {
			if !isRetryablePGError(err) {
				return err
			}
			lastErr = err
		} else {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		logger.Debug("retrying serialization failure", zap.Int("attempt", attempt), zap.Error(lastErr))
		if err := sleepWithBackoff(ctx, attempt); err != nil {
			return err
		}
	}
	logger.Warn("transaction retry limit exceeded", zap.Error(lastErr))
	return fmt.Errorf("%w: %v", ErrRetryLimit, lastErr)
}

func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// IsUniqueViolation reports a Postgres unique_violation (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func sleepWithBackoff(ctx context.Context, attempt int) error {
	base := 20 * time.Millisecond
	backoff := time.Duration(attempt*attempt) * base
	jitter := time.Duration(rand.Int63n(int64(10 * time.Millisecond)))
	timer := time.NewTimer(backoff + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
