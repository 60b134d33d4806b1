// Package config defines the top-level configuration for the moonshot agent
// and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MOONSHOT_* environment
// variables.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds the capital, sizing, and cycle parameters consumed by
// the risk engine and the trader loop.
type TradingConfig struct {
	StartingCapitalUSD float64  `toml:"starting_capital_usd"`
	TargetUSD          float64  `toml:"target_usd"`
	MaxSingleBetPct    float64  `toml:"max_single_bet_pct"`
	StopLossPct        float64  `toml:"stop_loss_pct"`
	KellyFraction      float64  `toml:"kelly_fraction"`
	MinEdgeThreshold   float64  `toml:"min_edge_threshold"`
	OptimismLevel      string   `toml:"optimism_level"`
	CompoundWins       bool     `toml:"compound_wins"`
	MaxLeverage        float64  `toml:"max_leverage"`
	MaxOpenPositions   int      `toml:"max_open_positions"`
	ScanInterval       duration `toml:"scan_interval"`
	// Seed makes a run reproducible; 0 seeds from the clock.
	Seed int64 `toml:"seed"`
}

// SnapshotConfig holds state-file parameters.
type SnapshotConfig struct {
	Path string `toml:"path"`
}

// PostgresConfig holds PostgreSQL connection parameters for the trade
// history and audit stores.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
	RunMigrations bool  `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the price cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for trade-history
// archival.
type S3Config struct {
	Enabled              bool   `toml:"enabled"`
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	Bucket               string `toml:"bucket"`
	AccessKey            string `toml:"access_key"`
	SecretKey            string `toml:"secret_key"`
	UseSSL               bool   `toml:"use_ssl"`
	ForcePathStyle       bool   `toml:"force_path_style"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			StartingCapitalUSD: 2.00,
			TargetUSD:          2_000_000.00,
			MaxSingleBetPct:    0.25,
			StopLossPct:        0.15,
			KellyFraction:      0.5,
			MinEdgeThreshold:   0.05,
			OptimismLevel:      "delusional",
			CompoundWins:       true,
			MaxLeverage:        5.0,
			MaxOpenPositions:   3,
			ScanInterval:       duration{30 * time.Second},
		},
		Snapshot: SnapshotConfig{
			Path: "data/portfolio_state.json",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "moonshot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:              false,
			Endpoint:             "http://localhost:9000",
			Region:               "us-east-1",
			Bucket:               "moonshot-data",
			UseSSL:               false,
			ForcePathStyle:       true,
			ArchiveRetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"bet_placed", "position_closed", "risk_halt", "target_reached"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validOptimism enumerates the accepted risk-appetite levels.
var validOptimism = map[string]bool{
	"conservative": true,
	"moderate":     true,
	"optimistic":   true,
	"delusional":   true,
	"ascended":     true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	t := c.Trading
	if t.StartingCapitalUSD <= 0 {
		errs = append(errs, "trading: starting_capital_usd must be > 0")
	}
	if t.TargetUSD <= t.StartingCapitalUSD {
		errs = append(errs, "trading: target_usd must exceed starting_capital_usd")
	}
	if t.MaxSingleBetPct <= 0 || t.MaxSingleBetPct > 1 {
		errs = append(errs, fmt.Sprintf("trading: max_single_bet_pct must be in (0, 1], got %g", t.MaxSingleBetPct))
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 1 {
		errs = append(errs, fmt.Sprintf("trading: stop_loss_pct must be in (0, 1), got %g", t.StopLossPct))
	}
	if t.KellyFraction <= 0 || t.KellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: kelly_fraction must be in (0, 1], got %g", t.KellyFraction))
	}
	if t.MinEdgeThreshold < 0 {
		errs = append(errs, "trading: min_edge_threshold must be >= 0")
	}
	if !validOptimism[strings.ToLower(t.OptimismLevel)] {
		errs = append(errs, fmt.Sprintf("trading: unknown optimism_level %q (valid: conservative, moderate, optimistic, delusional, ascended)", t.OptimismLevel))
	}
	if t.MaxLeverage < 1 || math.IsNaN(t.MaxLeverage) {
		errs = append(errs, "trading: max_leverage must be >= 1")
	}
	if t.MaxOpenPositions < 1 {
		errs = append(errs, "trading: max_open_positions must be >= 1")
	}
	if t.ScanInterval.Duration <= 0 {
		errs = append(errs, "trading: scan_interval must be positive")
	}

	// Snapshot
	if strings.TrimSpace(c.Snapshot.Path) == "" {
		errs = append(errs, "snapshot: path must not be empty")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.ArchiveRetentionDays < 1 {
			errs = append(errs, "s3: archive_retention_days must be >= 1")
		}
	}

	// Archive mode needs both the store and the sink.
	if strings.ToLower(c.Mode) == "archive" {
		if !c.Postgres.Enabled {
			errs = append(errs, "mode archive requires postgres.enabled = true")
		}
		if !c.S3.Enabled {
			errs = append(errs, "mode archive requires s3.enabled = true")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
