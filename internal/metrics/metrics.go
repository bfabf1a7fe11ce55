package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	// Reconciler metrics
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybill_events_processed_total",
			Help: "Total login/logout events applied to the reconciler",
		},
		[]string{"action"},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybill_sessions_closed_total",
			Help: "Total sessions closed, by reason",
		},
		[]string{"reason"},
	)

	UnmatchedLogouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybill_unmatched_logouts_total",
			Help: "Logout events with no open session to close",
		},
	)

	// Ingestion metrics
	EntriesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybill_log_entries_skipped_total",
			Help: "Malformed log entries skipped in lenient mode",
		},
	)

	// Billing metrics
	LedgersBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybill_ledgers_built_total",
			Help: "Total per-user ledgers materialized",
		},
	)

	DaysBilled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybill_days_billed_total",
			Help: "Total ledger days charged across all built ledgers",
		},
	)

	SpanTruncations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daybill_session_span_truncations_total",
			Help: "Sessions whose billable span was capped by max_span_days",
		},
	)

	// Export metrics
	LedgersExported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybill_ledgers_exported_total",
			Help: "Total ledgers written to the export sink",
		},
		[]string{"sink", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsProcessed,
		SessionsClosed,
		UnmatchedLogouts,
		EntriesSkipped,
		LedgersBuilt,
		DaysBilled,
		SpanTruncations,
		LedgersExported,
	)
}

// WriteTextfile dumps the default registry in the node exporter textfile format.
// The directory is created if missing.
func WriteTextfile(path string, logger zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	logger.Debug().Str("component", "metrics").Str("path", path).Msg("Metrics textfile written")
	return nil
}
