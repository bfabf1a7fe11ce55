package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface for exported run results.
// Reconciliation state itself is never stored; every run starts empty.
type Store interface {
	Close() error
	Ledgers() LedgerStore
}

// LedgerStore publishes finished per-user ledgers, grouped by run.
type LedgerStore interface {
	SaveLedger(ctx context.Context, ledger UserLedger) error
	GetLedger(ctx context.Context, runID, user string) (*UserLedger, error)
	ListUsers(ctx context.Context, runID string) ([]string, error)
	DeleteRun(ctx context.Context, runID string) (int, error)
}
