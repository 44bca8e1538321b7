// Package config loads and validates the service configuration from a JSON
// file, applying defaults for anything unspecified.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/c360/textpipe/errors"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig addresses the gateway and the metrics endpoint.
type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	MetricsPort int    `json:"metrics_port"`
}

// PipelineConfig sizes the processing pipeline.
type PipelineConfig struct {
	Workers            int `json:"workers"`
	QueueSize          int `json:"queue_size"`
	DebounceMs         int `json:"debounce_ms"`
	StreamCapacity     int `json:"stream_capacity"`
	CacheSize          int `json:"cache_size"`
	CacheTTLSeconds    int `json:"cache_ttl_seconds"`
	IdleTimeoutSeconds int `json:"idle_timeout_seconds"`
}

// RateLimitConfig throttles inbound WebSocket traffic per connection.
type RateLimitConfig struct {
	Enabled bool    `json:"enabled"`
	RPS     float64 `json:"rps"`
	Burst   int     `json:"burst"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			MetricsPort: 9090,
		},
		Pipeline: PipelineConfig{
			Workers:            4,
			QueueSize:          256,
			DebounceMs:         500,
			StreamCapacity:     1000,
			CacheSize:          512,
			CacheTTLSeconds:    300,
			IdleTimeoutSeconds: 0,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     20,
			Burst:   40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a JSON config file over the defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapFatal(err, "config", "load", "read config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapFatal(err, "config", "load", "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	fail := func(detail string) error {
		return errors.WrapFatal(fmt.Errorf("%s", detail),
			"config", "validate", "validate config")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fail(fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fail(fmt.Sprintf("metrics port %d out of range", c.Server.MetricsPort))
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.Port {
		return fail("metrics port must differ from server port")
	}
	if c.Pipeline.Workers <= 0 {
		return fail("pipeline workers must be positive")
	}
	if c.Pipeline.QueueSize <= 0 {
		return fail("pipeline queue size must be positive")
	}
	if c.Pipeline.DebounceMs < 0 {
		return fail("debounce delay must not be negative")
	}
	if c.Pipeline.StreamCapacity <= 0 {
		return fail("stream capacity must be positive")
	}
	if c.Pipeline.CacheSize < 0 {
		return fail("cache size must not be negative")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fail("rate limit rps and burst must be positive when enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fail(fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fail(fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}
	return nil
}

// DebounceDelay returns the debounce window as a duration.
func (c PipelineConfig) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// CacheTTL returns the result cache lifetime as a duration.
func (c PipelineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// IdleTimeout returns the idle connection timeout, zero when disabled.
func (c PipelineConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// NewLogger builds a slog.Logger per the logging configuration.
func (c LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
