// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs.
type Config struct {
	Logging    LoggingConfig           `mapstructure:"logging"`
	Server     ServerConfig            `mapstructure:"server"`
	DB         DBConfig                `mapstructure:"db"`
	Run        RunConfig               `mapstructure:"run"`
	Pagination PaginationConfig        `mapstructure:"pagination"`
	Retry      RetryConfig             `mapstructure:"retry"`
	Sources    map[string]SourceConfig `mapstructure:"sources"`
	Archive    ArchiveConfig           `mapstructure:"archive"`
	Alerts     AlertsConfig            `mapstructure:"alerts"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls the Postgres pool. The statement and lock timeouts
// become session settings so ingestion can never block the external
// schema-migration process indefinitely.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	StatementTimeoutMs int    `mapstructure:"statement_timeout_ms"`
	LockTimeoutMs      int    `mapstructure:"lock_timeout_ms"`
}

// RunConfig bounds each source's run.
type RunConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// PaginationConfig holds the batch-wide pagination defaults; sources
// may override page_size and max_pages.
type PaginationConfig struct {
	PageSize           int `mapstructure:"page_size"`
	MaxPages           int `mapstructure:"max_pages"`
	IdenticalPageLimit int `mapstructure:"identical_page_limit"`
	NoNewIDLimit       int `mapstructure:"no_new_id_limit"`
}

// RetryConfig holds retry defaults; sources may override.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

// SourceConfig configures one catalog source.
type SourceConfig struct {
	Enabled      bool        `mapstructure:"enabled"`
	BaseURL      string      `mapstructure:"base_url"`
	APIKey       string      `mapstructure:"api_key"`
	APIKeyHeader string      `mapstructure:"api_key_header"`
	UserAgent    string      `mapstructure:"user_agent"`
	PageSize     int         `mapstructure:"page_size"`
	MaxPages     int         `mapstructure:"max_pages"`
	Retry        RetryConfig `mapstructure:"retry"`
}

// ArchiveConfig selects the raw page archive provider.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"` // noop | local | gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// AlertsConfig selects the ops alert provider.
type AlertsConfig struct {
	Provider  string `mapstructure:"provider"` // noop | pubsub
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// Load builds a Config from disk and environment (CATALOG_ prefix).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.statement_timeout_ms", 5000)
	v.SetDefault("db.lock_timeout_ms", 3000)
	v.SetDefault("run.timeout_seconds", 600)
	v.SetDefault("pagination.page_size", 100)
	v.SetDefault("pagination.max_pages", 200)
	v.SetDefault("pagination.identical_page_limit", 2)
	v.SetDefault("pagination.no_new_id_limit", 3)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 250)
	v.SetDefault("retry.max_delay_ms", 5000)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("alerts.provider", "noop")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Run.TimeoutSeconds <= 0 {
		return fmt.Errorf("run.timeout_seconds must be > 0")
	}
	if c.Pagination.MaxPages <= 0 {
		return fmt.Errorf("pagination.max_pages must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	enabled := 0
	for name, src := range c.Sources {
		if !src.Enabled {
			continue
		}
		enabled++
		if src.BaseURL == "" {
			return fmt.Errorf("sources.%s.base_url is required", name)
		}
	}
	if c.DB.MaxConns > 0 && enabled > c.DB.MaxConns {
		return fmt.Errorf("db.max_conns (%d) must cover the %d enabled sources", c.DB.MaxConns, enabled)
	}
	switch c.Archive.Provider {
	case "", "noop", "local", "gcs":
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	switch c.Alerts.Provider {
	case "", "noop", "pubsub":
	default:
		return fmt.Errorf("unknown alerts provider: %s", c.Alerts.Provider)
	}
	return nil
}

// RunTimeout returns the per-source run bound as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

// RetryFor resolves the effective retry settings for one source,
// falling back to the batch-wide defaults.
func (c Config) RetryFor(name string) RetryConfig {
	out := c.Retry
	src, ok := c.Sources[name]
	if !ok {
		return out
	}
	if src.Retry.MaxAttempts > 0 {
		out.MaxAttempts = src.Retry.MaxAttempts
	}
	if src.Retry.BaseDelayMs > 0 {
		out.BaseDelayMs = src.Retry.BaseDelayMs
	}
	if src.Retry.MaxDelayMs > 0 {
		out.MaxDelayMs = src.Retry.MaxDelayMs
	}
	return out
}

// MaxPagesFor resolves the effective page ceiling for one source.
func (c Config) MaxPagesFor(name string) int {
	if src, ok := c.Sources[name]; ok && src.MaxPages > 0 {
		return src.MaxPages
	}
	return c.Pagination.MaxPages
}

// PageSizeFor resolves the effective page size for one source.
func (c Config) PageSizeFor(name string) int {
	if src, ok := c.Sources[name]; ok && src.PageSize > 0 {
		return src.PageSize
	}
	return c.Pagination.PageSize
}
