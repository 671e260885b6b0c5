// Package config loads the server's configuration knobs from environment
// variables using caarlos0/env and joho/godotenv, validating everything at
// startup.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable the server reads at startup, from listener
// capacity through the ambient logging and metrics settings.
type Config struct {
	// Listener
	Addr string `env:"KV_ADDR" envDefault:":6380"`

	// Capacity; 0 = unlimited.
	MaxClients int `env:"KV_MAX_CLIENTS" envDefault:"10000"`

	// Idle timeout; 0 = disabled. Seconds.
	MaxIdleTimeSeconds int `env:"KV_MAX_IDLE_TIME" envDefault:"0"`

	// Hard cap on the per-client query buffer.
	ClientMaxQueryBufLen int `env:"KV_MAX_QUERYBUF_LEN" envDefault:"1073741824"` // 1GiB

	// Verbosity gates protocol-error logging.
	Verbosity string `env:"KV_VERBOSITY" envDefault:"verbose"`

	// Connection-attempt rate limiting.
	ConnRateLimitEnabled bool    `env:"KV_CONN_RATE_LIMIT_ENABLED" envDefault:"true"`
	ConnRateLimitBurst   int     `env:"KV_CONN_RATE_LIMIT_BURST" envDefault:"128"`
	ConnRateLimitPerSec  float64 `env:"KV_CONN_RATE_LIMIT_PER_SEC" envDefault:"256"`

	// Sweep cadence for the idle-client timeout scan.
	SweepInterval time.Duration `env:"KV_SWEEP_INTERVAL" envDefault:"1s"`

	// Memory-pressure write-cap override.
	MemPressureCapDisableEnabled bool    `env:"KV_MEM_PRESSURE_DISABLE_CAP" envDefault:"false"`
	MemPressureThresholdPercent  float64 `env:"KV_MEM_PRESSURE_THRESHOLD_PCT" envDefault:"90"`

	// Metrics
	MetricsAddr string `env:"KV_METRICS_ADDR" envDefault:":9121"`

	// Logging
	LogLevel  string `env:"KV_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"KV_LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from an optional .env file and the environment.
// Priority: env vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("KV_ADDR is required")
	}
	if c.MaxClients < 0 {
		return fmt.Errorf("KV_MAX_CLIENTS must be >= 0, got %d", c.MaxClients)
	}
	if c.MaxIdleTimeSeconds < 0 {
		return fmt.Errorf("KV_MAX_IDLE_TIME must be >= 0, got %d", c.MaxIdleTimeSeconds)
	}
	if c.ClientMaxQueryBufLen <= 0 {
		return fmt.Errorf("KV_MAX_QUERYBUF_LEN must be > 0, got %d", c.ClientMaxQueryBufLen)
	}

	validVerbosity := map[string]bool{"silent": true, "notice": true, "verbose": true, "debug": true}
	if !validVerbosity[c.Verbosity] {
		return fmt.Errorf("KV_VERBOSITY must be one of: silent, notice, verbose, debug (got %s)", c.Verbosity)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("KV_LOG_LEVEL must be one of: debug, info, warn, error (got %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("KV_LOG_FORMAT must be one of: json, pretty (got %s)", c.LogFormat)
	}

	return nil
}

// LogConfig logs the configuration using structured logging, matching the
// teacher's Config.LogConfig.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Int("max_clients", c.MaxClients).
		Int("max_idle_time_s", c.MaxIdleTimeSeconds).
		Int("client_max_querybuf_len", c.ClientMaxQueryBufLen).
		Str("verbosity", c.Verbosity).
		Bool("conn_rate_limit_enabled", c.ConnRateLimitEnabled).
		Int("conn_rate_limit_burst", c.ConnRateLimitBurst).
		Float64("conn_rate_limit_per_sec", c.ConnRateLimitPerSec).
		Dur("sweep_interval", c.SweepInterval).
		Bool("mem_pressure_disable_cap_enabled", c.MemPressureCapDisableEnabled).
		Float64("mem_pressure_threshold_pct", c.MemPressureThresholdPercent).
		Str("metrics_addr", c.MetricsAddr).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}
