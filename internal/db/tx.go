package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every query helper
// can run standalone or inside a unit of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. fn's error rolls everything back and is
// returned unchanged; failing to begin or commit yields STORE_UNAVAILABLE.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreUnavailable(err)
	}
	return nil
}

// WithReadTx runs fn inside a read-only transaction. It begins deferred
// rather than immediate, so it never takes the write lock and writers are
// not blocked while it reads a consistent WAL snapshot.
func WithReadTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreUnavailable(err)
	}
	return nil
}

// storeError maps a driver error to a TrackerError.
// Lock contention becomes STORE_UNAVAILABLE; anything else is INTERNAL.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.TrackerError); ok {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return errors.NewStoreUnavailable(err)
	}
	return errors.NewInternal(err)
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
