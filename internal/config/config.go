// Package config provides configuration loading for beacond.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the beacond server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds server identity and transport settings.
type ServerConfig struct {
	Name            string        `koanf:"name"`
	Version         string        `koanf:"version"`
	HTTPAddr        string        `koanf:"http_addr"`
	HTTPEnabled     bool          `koanf:"http_enabled"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds the diagnostics pipeline settings. It mirrors
// logging.Config without importing it so the dependency points one way.
type LoggingConfig struct {
	Level     string          `koanf:"level"`
	Format    string          `koanf:"format"`
	Redaction RedactionConfig `koanf:"redaction"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Notifier  NotifierConfig  `koanf:"notifier"`
}

// RedactionConfig controls the sensitive-field filter.
type RedactionConfig struct {
	Enabled bool     `koanf:"enabled"`
	Keys    []string `koanf:"keys"`
}

// RateLimitConfig controls per-window log suppression.
type RateLimitConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Window       time.Duration `koanf:"window"`
	MaxPerWindow int           `koanf:"max_per_window"`
}

// NotifierConfig controls forwarding of log records to connected clients.
type NotifierConfig struct {
	Floor             string  `koanf:"floor"`
	ForwardsPerSecond float64 `koanf:"forwards_per_second"`
	Burst             int     `koanf:"burst"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool          `koanf:"enabled"`
	ServiceName    string        `koanf:"service_name"`
	ServiceVersion string        `koanf:"service_version"`
	Endpoint       string        `koanf:"endpoint"`
	Protocol       string        `koanf:"protocol"`
	Insecure       bool          `koanf:"insecure"`
	SampleRate     float64       `koanf:"sample_rate"`
	ExportInterval time.Duration `koanf:"export_interval"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Logging.RateLimit.Window <= 0 {
		return fmt.Errorf("logging.rate_limit.window must be positive")
	}
	if c.Logging.RateLimit.MaxPerWindow <= 0 {
		return fmt.Errorf("logging.rate_limit.max_per_window must be positive")
	}
	if c.Logging.Notifier.ForwardsPerSecond <= 0 {
		return fmt.Errorf("logging.notifier.forwards_per_second must be positive")
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be in [0, 1], got %f", c.Telemetry.SampleRate)
		}
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "beacond"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "0.1.0"
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":9632"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.RateLimit.Window == 0 {
		cfg.Logging.RateLimit.Window = time.Second
	}
	if cfg.Logging.RateLimit.MaxPerWindow == 0 {
		cfg.Logging.RateLimit.MaxPerWindow = 100
	}
	if cfg.Logging.Notifier.Floor == "" {
		cfg.Logging.Notifier.Floor = "info"
	}
	if cfg.Logging.Notifier.ForwardsPerSecond == 0 {
		cfg.Logging.Notifier.ForwardsPerSecond = 50
	}
	if cfg.Logging.Notifier.Burst == 0 {
		cfg.Logging.Notifier.Burst = 100
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.Server.Name
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = cfg.Server.Version
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
}

// Default returns a configuration with every default applied. Redaction and
// rate limiting start enabled so a missing config file still gets the safe
// behavior.
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Redaction.Enabled = true
	cfg.Logging.RateLimit.Enabled = true
	applyDefaults(cfg)
	return cfg
}
