package report

import (
	"context"
	"fmt"

	"github.com/goodtune/daybill/internal/billing"
	"github.com/goodtune/daybill/internal/metrics"
	"github.com/goodtune/daybill/internal/storage"
	"github.com/rs/zerolog"
)

// Export publishes every user's ledger in r to store under the report's run id.
func Export(ctx context.Context, store storage.LedgerStore, sink string, r *Report, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "export").Str("run_id", r.RunID).Logger()

	for _, u := range r.Users {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := store.SaveLedger(ctx, toStored(r, u)); err != nil {
			metrics.LedgersExported.WithLabelValues(sink, "error").Inc()
			return fmt.Errorf("failed to export ledger for %s: %w", u.User, err)
		}
		metrics.LedgersExported.WithLabelValues(sink, "ok").Inc()
	}

	logger.Info().
		Str("sink", sink).
		Int("users", len(r.Users)).
		Msg("Exported ledgers")

	return nil
}

func toStored(r *Report, u UserReport) storage.UserLedger {
	entries := u.Ledger.Entries()
	stored := storage.UserLedger{
		RunID:       r.RunID,
		User:        u.User,
		Policy:      r.Policy.String(),
		Total:       money(u.Total),
		GeneratedAt: r.GeneratedAt,
		Entries:     make([]storage.LedgerEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		stored.Entries = append(stored.Entries, storage.LedgerEntry{
			Date:   entry.Date.Format(billing.DateLayout),
			Amount: money(entry.Amount),
		})
	}
	return stored
}
