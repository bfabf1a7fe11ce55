package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/daybill/internal/config"
	"github.com/goodtune/daybill/internal/storage"
	"github.com/spf13/cobra"
)

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "Inspect ledgers exported by previous runs",
	Long:  `List, show or purge the per-user ledgers a report run exported to the configured sink.`,
}

var ledgersListCmd = &cobra.Command{
	Use:     "list RUNID",
	Short:   "List the users exported for a run",
	Example: `  daybill -c daybill.yaml ledgers list 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedgerStore(cmd, func(ctx context.Context, ls storage.LedgerStore) error {
			return listLedgers(ctx, ls, args[0], cmd.OutOrStdout())
		})
	},
}

var ledgersShowCmd = &cobra.Command{
	Use:     "show RUNID USER",
	Short:   "Show one user's exported ledger",
	Example: `  daybill ledgers show 1b4e28ba-2fa1-11d2-883f-0016d3cca427 alice`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedgerStore(cmd, func(ctx context.Context, ls storage.LedgerStore) error {
			return showLedger(ctx, ls, args[0], args[1], cmd.OutOrStdout())
		})
	},
}

var ledgersPurgeCmd = &cobra.Command{
	Use:   "purge RUNID",
	Short: "Delete every ledger exported for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedgerStore(cmd, func(ctx context.Context, ls storage.LedgerStore) error {
			return purgeRun(ctx, ls, args[0], cmd.OutOrStdout())
		})
	},
}

func init() {
	ledgersCmd.AddCommand(ledgersListCmd, ledgersShowCmd, ledgersPurgeCmd)
	rootCmd.AddCommand(ledgersCmd)
}

// withLedgerStore opens the configured export sink for the duration of fn.
func withLedgerStore(cmd *cobra.Command, fn func(context.Context, storage.LedgerStore) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg.Export)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("ledger export is disabled (export.type = %s)", cfg.Export.Type)
	}
	defer func() { _ = store.Close() }()

	return fn(cmd.Context(), store.Ledgers())
}

func listLedgers(ctx context.Context, ls storage.LedgerStore, runID string, out io.Writer) error {
	users, err := ls.ListUsers(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list run %s: %w", runID, err)
	}

	if len(users) == 0 {
		_, _ = color.New(color.FgYellow).Fprintf(out, "No ledgers exported for run %s\n", runID)
		return nil
	}

	_, _ = color.New(color.FgCyan, color.Bold).Fprintf(out, "Run %s (%d users)\n", runID, len(users))
	for _, user := range users {
		_, _ = fmt.Fprintf(out, "  %s\n", user)
	}
	return nil
}

func showLedger(ctx context.Context, ls storage.LedgerStore, runID, user string, out io.Writer) error {
	ledger, err := ls.GetLedger(ctx, runID, user)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no ledger for %s in run %s: %w", user, runID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger for %s: %w", user, err)
	}

	_, _ = color.New(color.FgCyan, color.Bold).Fprintf(out, "User: %s\n", ledger.User)
	_, _ = fmt.Fprintf(out, "Run: %s  Policy: %s  Generated: %s\n",
		ledger.RunID, ledger.Policy, ledger.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	_, _ = fmt.Fprintln(out, strings.Repeat("-", 50))

	if len(ledger.Entries) == 0 {
		_, _ = fmt.Fprintln(out, "  No billing information available")
		return nil
	}
	for _, entry := range ledger.Entries {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", entry.Date, entry.Amount)
	}
	_, _ = fmt.Fprintln(out, "  "+strings.Repeat("-", 30))
	_, _ = color.New(color.FgGreen, color.Bold).Fprintf(out, "  %-12s %s\n", "TOTAL:", ledger.Total)
	return nil
}

func purgeRun(ctx context.Context, ls storage.LedgerStore, runID string, out io.Writer) error {
	deleted, err := ls.DeleteRun(ctx, runID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Deleted %d ledger(s) for run %s\n", deleted, runID)
	return nil
}
