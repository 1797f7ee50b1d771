package telemetry

import (
	"fmt"
	"time"
)

// Config holds OpenTelemetry export settings.
type Config struct {
	// Enabled turns exporting on. When false New returns a no-op instance.
	Enabled bool

	// ServiceName and ServiceVersion identify the service in exported data.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string

	// Protocol selects the exporter transport: "grpc" or "http".
	Protocol string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// SampleRate is the trace sampling ratio in [0, 1]. 1 samples everything.
	SampleRate float64

	// ExportInterval is the metric export period.
	ExportInterval time.Duration

	// ShutdownTimeout bounds provider shutdown when the caller's context has
	// no deadline.
	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns a disabled configuration with sane export
// settings for when it gets enabled.
func NewDefaultConfig(serviceName, serviceVersion string) *Config {
	return &Config{
		ServiceName:     serviceName,
		ServiceVersion:  serviceVersion,
		Endpoint:        "localhost:4317",
		Protocol:        "grpc",
		SampleRate:      1.0,
		ExportInterval:  30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	switch c.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("protocol must be grpc or http, got %q", c.Protocol)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be in [0, 1], got %f", c.SampleRate)
	}
	if c.ExportInterval <= 0 {
		return fmt.Errorf("export interval must be positive")
	}
	return nil
}
