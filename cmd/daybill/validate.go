package main

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/daybill/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the daybill configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	var unknownKeys []string
	if configPath != "" {
		unknownKeys, err = findUnknownKeys(configPath)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Warning: Could not check for unknown keys: %v\n", err)
		}
	}

	source := configPath
	if source == "" {
		source = "(defaults and environment)"
	}
	_, _ = fmt.Fprintf(out, "✅ Configuration is valid: %s\n", source)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(out)
		_, _ = red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(out, strings.Repeat("=", 80))

		dumpConfig(out, cfg, config.Default(), unknownKeys)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns every key known to the defaults, plus the ones
// without a default value.
func getValidKeys() map[string]bool {
	v := viper.New()
	config.SetDefaults(v)

	keys := map[string]bool{
		"export.redis.password": true,
	}
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(out io.Writer, cfg, defaultCfg *config.Config, unknownKeys []string) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	d := dumper{out: out, modified: yellow, unchanged: green}

	// Input
	_, _ = cyan.Fprintln(out, "\n[input]")
	d.field("  path", cfg.Input.Path, defaultCfg.Input.Path)
	d.field("  format", cfg.Input.Format, defaultCfg.Input.Format)
	d.field("  strict", cfg.Input.Strict, defaultCfg.Input.Strict)
	d.field("  require_sorted", cfg.Input.RequireSorted, defaultCfg.Input.RequireSorted)

	// Billing
	_, _ = cyan.Fprintln(out, "\n[billing]")
	d.field("  daily_rate", cfg.Billing.DailyRate, defaultCfg.Billing.DailyRate)
	d.field("  open_session_policy", cfg.Billing.OpenSessionPolicy, defaultCfg.Billing.OpenSessionPolicy)
	d.field("  max_session_duration", cfg.Billing.MaxSessionDuration, defaultCfg.Billing.MaxSessionDuration)
	d.field("  max_span_days", cfg.Billing.MaxSpanDays, defaultCfg.Billing.MaxSpanDays)

	// Reconciler
	_, _ = cyan.Fprintln(out, "\n[reconciler]")
	d.field("  workers", cfg.Reconciler.Workers, defaultCfg.Reconciler.Workers)

	// Logging
	_, _ = cyan.Fprintln(out, "\n[logging]")
	d.field("  level", cfg.Logging.Level, defaultCfg.Logging.Level)
	d.field("  format", cfg.Logging.Format, defaultCfg.Logging.Format)

	// Export
	_, _ = cyan.Fprintln(out, "\n[export]")
	d.field("  type", cfg.Export.Type, defaultCfg.Export.Type)
	d.field("  ttl", cfg.Export.TTL, defaultCfg.Export.TTL)
	_, _ = cyan.Fprintln(out, "  [export.redis]")
	d.field("    host", cfg.Export.Redis.Host, defaultCfg.Export.Redis.Host)
	d.field("    port", cfg.Export.Redis.Port, defaultCfg.Export.Redis.Port)
	d.field("    password", redactPassword(cfg.Export.Redis.Password), redactPassword(defaultCfg.Export.Redis.Password))
	d.field("    db", cfg.Export.Redis.DB, defaultCfg.Export.Redis.DB)
	d.field("    pool_size", cfg.Export.Redis.PoolSize, defaultCfg.Export.Redis.PoolSize)
	d.field("    min_idle_conns", cfg.Export.Redis.MinIdleConns, defaultCfg.Export.Redis.MinIdleConns)
	d.field("    dial_timeout", cfg.Export.Redis.DialTimeout, defaultCfg.Export.Redis.DialTimeout)
	d.field("    read_timeout", cfg.Export.Redis.ReadTimeout, defaultCfg.Export.Redis.ReadTimeout)
	d.field("    write_timeout", cfg.Export.Redis.WriteTimeout, defaultCfg.Export.Redis.WriteTimeout)
	d.field("    key_prefix", cfg.Export.Redis.KeyPrefix, defaultCfg.Export.Redis.KeyPrefix)

	// Metrics
	_, _ = cyan.Fprintln(out, "\n[metrics]")
	d.field("  textfile", cfg.Metrics.Textfile, defaultCfg.Metrics.Textfile)

	// Display unknown keys if any
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)

		_, _ = cyan.Fprintln(out, "\n[UNKNOWN KEYS - These will be ignored!]")
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "  %s = (unknown key - check for typos)\n", key)
		}
	}

	_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
}

type dumper struct {
	out       io.Writer
	modified  *color.Color
	unchanged *color.Color
}

// field prints a field with color if it differs from default
func (d dumper) field(name string, value, defaultValue interface{}) {
	if reflect.DeepEqual(value, defaultValue) {
		_, _ = d.unchanged.Fprintf(d.out, "%s = %v\n", name, value)
	} else {
		_, _ = d.modified.Fprintf(d.out, "%s = %v  (modified from default: %v)\n", name, value, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}

