package redis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goodtune/daybill/internal/storage"
)

const dayFieldPrefix = "day:"

// keyspace builds the Redis keys for one prefix
type keyspace struct {
	prefix string
}

func (k keyspace) ledger(runID, user string) string {
	return fmt.Sprintf("%s:ledger:%s:%s", k.prefix, runID, user)
}

func (k keyspace) ledgerPrefix(runID string) string {
	return fmt.Sprintf("%s:ledger:%s:", k.prefix, runID)
}

func (k keyspace) runIndex(runID string) string {
	return fmt.Sprintf("%s:run:%s:users", k.prefix, runID)
}

// parseUserLedger converts a Redis hash to UserLedger
func parseUserLedger(data map[string]string) (*storage.UserLedger, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	generatedAt, err := time.Parse(time.RFC3339Nano, data["generated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated_at: %w", err)
	}

	entries := make([]storage.LedgerEntry, 0, len(data))
	for field, amount := range data {
		date, ok := strings.CutPrefix(field, dayFieldPrefix)
		if !ok {
			continue
		}
		entries = append(entries, storage.LedgerEntry{Date: date, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})

	return &storage.UserLedger{
		RunID:       data["run_id"],
		User:        data["user"],
		Policy:      data["policy"],
		Total:       data["total"],
		GeneratedAt: generatedAt,
		Entries:     entries,
	}, nil
}
