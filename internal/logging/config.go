package logging

import (
	"fmt"
	"time"
)

// Config holds logger configuration. All three runtime-mutable knobs
// (threshold, redaction, rate limiting) seed their initial state here and can
// be changed afterward through the Logger's setters.
type Config struct {
	Level     Severity          `koanf:"level"`
	Format    string            `koanf:"format"`
	Fields    map[string]string `koanf:"fields"`
	Redaction RedactionConfig   `koanf:"redaction"`
	RateLimit RateLimitConfig   `koanf:"rate_limit"`
	Notifier  NotifierConfig    `koanf:"notifier"`
}

// RedactionConfig controls sensitive field redaction.
type RedactionConfig struct {
	Enabled bool     `koanf:"enabled"`
	Keys    []string `koanf:"keys"`
}

// RateLimitConfig controls per-window record caps.
type RateLimitConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Window       time.Duration `koanf:"window"`
	MaxPerWindow int           `koanf:"max_per_window"`
}

// NotifierConfig controls forwarding to a downstream notification sink.
type NotifierConfig struct {
	// Floor is the sink's own minimum severity, independent of the
	// logger threshold.
	Floor Severity `koanf:"floor"`

	// ForwardsPerSecond and Burst bound the forward rate so a slow
	// downstream client cannot amplify into unbounded goroutines.
	ForwardsPerSecond float64 `koanf:"forwards_per_second"`
	Burst             int     `koanf:"burst"`
}

// NewDefaultConfig returns production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  SeverityInfo,
		Format: "json",
		Fields: map[string]string{
			"service": "beacond",
		},
		Redaction: RedactionConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Window:       time.Second,
			MaxPerWindow: 100,
		},
		Notifier: NotifierConfig{
			Floor:             SeverityInfo,
			ForwardsPerSecond: 50,
			Burst:             100,
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if _, ok := severityNames[c.Level]; !ok {
		return fmt.Errorf("%w: level %d", ErrInvalidSeverity, int8(c.Level))
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be > 0 when enabled")
		}
		if c.RateLimit.MaxPerWindow < 1 {
			return fmt.Errorf("rate limit max_per_window must be >= 1, got %d", c.RateLimit.MaxPerWindow)
		}
	}
	if _, ok := severityNames[c.Notifier.Floor]; !ok {
		return fmt.Errorf("%w: notifier floor %d", ErrInvalidSeverity, int8(c.Notifier.Floor))
	}
	if c.Notifier.ForwardsPerSecond < 0 {
		return fmt.Errorf("notifier forwards_per_second must be >= 0")
	}
	if c.Notifier.Burst < 0 {
		return fmt.Errorf("notifier burst must be >= 0")
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
