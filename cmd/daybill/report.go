package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/daybill/internal/billing"
	"github.com/goodtune/daybill/internal/config"
	"github.com/goodtune/daybill/internal/eventlog"
	"github.com/goodtune/daybill/internal/metrics"
	"github.com/goodtune/daybill/internal/report"
	"github.com/goodtune/daybill/internal/session"
	"github.com/goodtune/daybill/internal/storage"
	"github.com/goodtune/daybill/internal/storage/redis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	reportPolicy  string
	reportInput   string
	reportFormat  string
	reportExport  string
	reportWorkers int
	reportStrict  bool
	reportNoColor bool
)

var reportCmd = &cobra.Command{
	Use:   "report [LOGFILE]",
	Short: "Print the itemized billing report",
	Long:  `Reconcile the login/logout log into sessions and print each user's daily charges and totals.`,
	Example: `  daybill report sessions.log
  daybill -c daybill.yaml report --policy through-now --format json
  daybill report --export redis --workers 4 /var/log/sessions.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportPolicy, "policy", "", "Open session policy: through-login-day or through-now (overrides config)")
	reportCmd.Flags().StringVar(&reportInput, "input-format", "", "Log format: text or jsonl (overrides config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text or json")
	reportCmd.Flags().StringVar(&reportExport, "export", "", "Ledger export sink: none or redis (overrides config)")
	reportCmd.Flags().IntVar(&reportWorkers, "workers", 0, "Replay workers, sharded by user (overrides config)")
	reportCmd.Flags().BoolVar(&reportStrict, "strict", false, "Abort on malformed log lines instead of skipping them")
	reportCmd.Flags().BoolVar(&reportNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyReportFlags(cmd, cfg, args); err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colorize := !reportNoColor && !color.NoColor
	return generateReport(ctx, cfg, cmd.OutOrStdout(), colorize, billing.WallClock{}, logger)
}

// applyReportFlags overlays explicitly set command line flags on cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	if cmd.Flags().Changed("policy") {
		cfg.Billing.OpenSessionPolicy = reportPolicy
	}
	if cmd.Flags().Changed("input-format") {
		cfg.Input.Format = reportInput
	}
	if cmd.Flags().Changed("export") {
		cfg.Export.Type = reportExport
	}
	if cmd.Flags().Changed("workers") {
		cfg.Reconciler.Workers = reportWorkers
	}
	if cmd.Flags().Changed("strict") {
		cfg.Input.Strict = reportStrict
	}

	switch reportFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported format: %s (must be text or json)", reportFormat)
	}

	if _, err := billing.ParseOpenSessionPolicy(cfg.Billing.OpenSessionPolicy); err != nil {
		return err
	}
	if _, err := eventlog.ParseFormat(cfg.Input.Format); err != nil {
		return err
	}
	switch cfg.Export.Type {
	case "", "none", "redis":
	default:
		return fmt.Errorf("unsupported export type: %s (must be none or redis)", cfg.Export.Type)
	}
	return nil
}

// generateReport runs the whole pipeline: read, reconcile, bill, render and
// export. clock stamps the report and bounds through-now billing.
func generateReport(ctx context.Context, cfg *config.Config, out io.Writer, colorize bool, clock billing.Clock, logger zerolog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With().Str("run_id", runID).Logger()

	format, err := eventlog.ParseFormat(cfg.Input.Format)
	if err != nil {
		return err
	}

	parser := eventlog.NewParser(eventlog.Options{
		Format:        format,
		Strict:        cfg.Input.Strict,
		RequireSorted: cfg.Input.RequireSorted,
	}, logger)

	events, err := parser.ParseFile(cfg.Input.Path)
	if err != nil {
		return err
	}

	maxSession, err := time.ParseDuration(cfg.Billing.MaxSessionDuration)
	if err != nil {
		return fmt.Errorf("invalid max session duration: %w", err)
	}

	reconciler := session.NewReconciler(session.Config{MaxSessionDuration: maxSession}, logger)
	if err := reconciler.Replay(ctx, events, cfg.Reconciler.Workers); err != nil {
		return fmt.Errorf("failed to replay events: %w", err)
	}

	aggregator, err := newAggregator(cfg.Billing, clock, logger)
	if err != nil {
		return err
	}

	svc := billing.NewService(reconciler, aggregator)
	rep := report.Build(svc, runID)

	logger.Info().
		Int("events", len(events)).
		Int("users", len(rep.Users)).
		Stringer("policy", rep.Policy).
		Dur("max_session_duration", reconciler.MaxSessionDuration()).
		Msg("Billing run complete")

	switch reportFormat {
	case "json":
		err = report.WriteJSON(out, rep)
	default:
		err = report.WriteText(out, rep, colorize)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := exportReport(ctx, cfg.Export, rep, logger); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, logger); err != nil {
			return err
		}
	}

	return nil
}

func newAggregator(cfg config.BillingConfig, clock billing.Clock, logger zerolog.Logger) (*billing.Aggregator, error) {
	rate, err := decimal.NewFromString(cfg.DailyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid daily rate %q: %w", cfg.DailyRate, err)
	}

	policy, err := billing.ParseOpenSessionPolicy(cfg.OpenSessionPolicy)
	if err != nil {
		return nil, err
	}

	return billing.NewAggregator(billing.Config{
		DailyRate:         rate,
		OpenSessionPolicy: policy,
		MaxSpanDays:       cfg.MaxSpanDays,
		Clock:             clock,
	}, logger), nil
}

func exportReport(ctx context.Context, cfg config.ExportConfig, rep *report.Report, logger zerolog.Logger) error {
	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close export storage")
		}
	}()

	return report.Export(ctx, store.Ledgers(), cfg.Type, rep, logger)
}

// openStorage opens the configured export sink; nil means exporting is disabled.
func openStorage(cfg config.ExportConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "redis":
		ttl, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid export ttl: %w", err)
		}
		store, err := redis.Open(cfg.Redis, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported export type: %s (must be none or redis)", cfg.Type)
	}
}
