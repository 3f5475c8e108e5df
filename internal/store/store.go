package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/zeebo/xxh3"
)

// Store provides typed access to the targets/checks/incidents tables.
type Store struct {
	db *sqlx.DB
}

// New creates a Store over an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping verifies database connectivity with a round trip.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// LockKey derives the advisory-lock key for a target. The key is a
// stable hash of "target:<id>" so manual and scheduled checks agree on
// it across connections.
func LockKey(targetID int64) int64 {
	return int64(xxh3.HashString("target:" + strconv.FormatInt(targetID, 10)))
}

// Tx is a check-flow transaction holding the target's advisory lock.
// The lock is released automatically on Commit or Rollback.
type Tx struct {
	tx *sqlx.Tx
}

// BeginCheckTx opens a transaction and takes the target-scoped
// advisory lock, serializing concurrent check runs for the target
// across connections.
func (s *Store) BeginCheckTx(ctx context.Context, targetID int64) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin check tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", LockKey(targetID)); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("lock target %d: %w", targetID, err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit check tx: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
