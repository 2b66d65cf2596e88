package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oliklab/mledger-sub000/internal/metrics"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TxRunner executes one ledger operation as one database transaction.
// Lock and version conflicts are retried up to Retries times before
// surfacing as ErrConflict; every other failure rolls back immediately.
type TxRunner struct {
	db          *gorm.DB
	retries     int
	lockTimeout time.Duration
}

func NewTxRunner(db *gorm.DB, retries int, lockTimeout time.Duration) *TxRunner {
	if retries < 0 {
		retries = 0
	}
	return &TxRunner{db: db, retries: retries, lockTimeout: lockTimeout}
}

// Run calls fn inside a transaction. fn may run more than once, so it must
// build all of its state from scratch on every call.
func (r *TxRunner) Run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		err = classify(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := r.setLockTimeout(tx); err != nil {
				return err
			}
			return fn(tx)
		}))
		if err == nil || KindOf(err) != KindConflict || ctx.Err() != nil {
			break
		}
		if attempt == r.retries {
			break
		}
		metrics.LedgerRetries.WithLabelValues(op).Inc()
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("ledger conflict, retrying")

		select {
		case <-ctx.Done():
			return conflict(ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 15 * time.Millisecond):
		}
	}

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		if KindOf(err) == KindUnknown || KindOf(err) == KindIntegrity {
			log.Error().Err(err).Str("op", op).Msg("ledger operation failed")
		}
	} else {
		log.Debug().Str("op", op).Msg("ledger operation committed")
	}
	metrics.LedgerOperations.WithLabelValues(op, outcome).Inc()
	return err
}

// setLockTimeout bounds how long a transaction waits on a row lock held by
// another writer. Only Postgres understands SET LOCAL.
func (r *TxRunner) setLockTimeout(tx *gorm.DB) error {
	if r.lockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())).Error
}

// Postgres SQLSTATE codes the ledger reacts to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgForeignKeyViolation  = "23503"
)

// classify turns storage failures into the ledger taxonomy. Typed errors
// pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return conflict(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return conflict(err)
		case pgForeignKeyViolation:
			return integrity(err, "operation would leave a dangling reference")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return conflict(err)
	}
	return err
}

// lookupErr maps a repository lookup failure: record-not-found becomes a
// typed NotFound naming what, anything else is returned as is.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
