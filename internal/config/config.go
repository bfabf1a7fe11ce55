package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/daybill/internal/billing"
	"github.com/goodtune/daybill/internal/eventlog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Export     ExportConfig     `mapstructure:"export"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// InputConfig defines how the session log is read
type InputConfig struct {
	Path          string `mapstructure:"path"`
	Format        string `mapstructure:"format"`         // "text" or "jsonl"
	Strict        bool   `mapstructure:"strict"`         // abort on malformed lines instead of skipping
	RequireSorted bool   `mapstructure:"require_sorted"` // reject out-of-order input instead of sorting
}

// BillingConfig defines the flat-rate billing policy
type BillingConfig struct {
	DailyRate          string `mapstructure:"daily_rate"`
	OpenSessionPolicy  string `mapstructure:"open_session_policy"` // "through-login-day" or "through-now"
	MaxSessionDuration string `mapstructure:"max_session_duration"`
	MaxSpanDays        int    `mapstructure:"max_span_days"`
}

// ReconcilerConfig defines event replay settings
type ReconcilerConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExportConfig defines where finished ledgers are published
type ExportConfig struct {
	Type  string      `mapstructure:"type"` // "none" or "redis"
	TTL   string      `mapstructure:"ttl"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// MetricsConfig defines metrics output
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // node exporter textfile path, empty disables
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("DAYBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.path", "sessions.log")
	v.SetDefault("input.format", "text")
	v.SetDefault("input.strict", false)
	v.SetDefault("input.require_sorted", false)

	// Billing defaults
	v.SetDefault("billing.daily_rate", "240.00")
	v.SetDefault("billing.open_session_policy", "through-login-day")
	v.SetDefault("billing.max_session_duration", "24h")
	v.SetDefault("billing.max_span_days", 0)

	// Reconciler defaults
	v.SetDefault("reconciler.workers", 1)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	// Export defaults
	v.SetDefault("export.type", "none")
	v.SetDefault("export.ttl", "720h")
	v.SetDefault("export.redis.host", "localhost")
	v.SetDefault("export.redis.port", 6379)
	v.SetDefault("export.redis.db", 0)
	v.SetDefault("export.redis.pool_size", 10)
	v.SetDefault("export.redis.min_idle_conns", 1)
	v.SetDefault("export.redis.dial_timeout", "5s")
	v.SetDefault("export.redis.read_timeout", "3s")
	v.SetDefault("export.redis.write_timeout", "3s")
	v.SetDefault("export.redis.key_prefix", "daybill")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if _, err := eventlog.ParseFormat(cfg.Input.Format); err != nil {
		return err
	}

	rate, err := decimal.NewFromString(cfg.Billing.DailyRate)
	if err != nil {
		return fmt.Errorf("invalid daily rate %q: %w", cfg.Billing.DailyRate, err)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("daily rate must be positive, got %s", cfg.Billing.DailyRate)
	}

	if _, err := billing.ParseOpenSessionPolicy(cfg.Billing.OpenSessionPolicy); err != nil {
		return err
	}

	d, err := time.ParseDuration(cfg.Billing.MaxSessionDuration)
	if err != nil {
		return fmt.Errorf("invalid max session duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("max session duration must be positive, got %s", d)
	}

	if cfg.Billing.MaxSpanDays < 0 {
		return fmt.Errorf("max span days cannot be negative: %d", cfg.Billing.MaxSpanDays)
	}

	if cfg.Reconciler.Workers < 1 {
		cfg.Reconciler.Workers = 1
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Logging.Level)
	}

	switch cfg.Export.Type {
	case "", "none":
		cfg.Export.Type = "none"
	case "redis":
		if cfg.Export.Redis.Host == "" {
			return fmt.Errorf("export.redis.host is required for redis export")
		}
		if _, err := time.ParseDuration(cfg.Export.TTL); err != nil {
			return fmt.Errorf("invalid export ttl: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export type: %s (must be none or redis)", cfg.Export.Type)
	}

	return nil
}
