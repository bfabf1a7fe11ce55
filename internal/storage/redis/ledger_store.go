package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/daybill/internal/storage"
	"github.com/redis/go-redis/v9"
)

var (
	saveLedger = redis.NewScript(saveLedgerScript)
	deleteRun  = redis.NewScript(deleteRunScript)
)

type ledgerStore struct {
	client *redis.Client
	keys   keyspace
	ttl    time.Duration
}

// SaveLedger writes or replaces a user's ledger for a run
func (s *ledgerStore) SaveLedger(ctx context.Context, ledger storage.UserLedger) error {
	if ledger.RunID == "" || ledger.User == "" {
		return fmt.Errorf("ledger requires run id and user")
	}

	keys := []string{
		s.keys.ledger(ledger.RunID, ledger.User),
		s.keys.runIndex(ledger.RunID),
	}

	args := make([]interface{}, 0, 6+2*len(ledger.Entries))
	args = append(args,
		ledger.User,
		ledger.RunID,
		ledger.Policy,
		ledger.Total,
		ledger.GeneratedAt.Format(time.RFC3339Nano),
		int64(s.ttl/time.Second),
	)
	for _, entry := range ledger.Entries {
		args = append(args, entry.Date, entry.Amount)
	}

	if err := saveLedger.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("failed to save ledger for %s: %w", ledger.User, err)
	}
	return nil
}

// GetLedger retrieves a user's ledger for a run
func (s *ledgerStore) GetLedger(ctx context.Context, runID, user string) (*storage.UserLedger, error) {
	data, err := s.client.HGetAll(ctx, s.keys.ledger(runID, user)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseUserLedger(data)
}

// ListUsers returns the users exported for a run, sorted
func (s *ledgerStore) ListUsers(ctx context.Context, runID string) ([]string, error) {
	users, err := s.client.SMembers(ctx, s.keys.runIndex(runID)).Result()
	if err != nil {
		return nil, err
	}

	sort.Strings(users)
	return users, nil
}

// DeleteRun removes every ledger exported for a run
func (s *ledgerStore) DeleteRun(ctx context.Context, runID string) (int, error) {
	deleted, err := deleteRun.Run(ctx, s.client,
		[]string{s.keys.runIndex(runID)},
		s.keys.ledgerPrefix(runID),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return deleted, nil
}
