package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig("beacond", "0.1.0")

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "beacond", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.InDelta(t, 1.0, cfg.SampleRate, 0.001)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "disabled skips export checks",
			mutate: func(c *Config) { c.Endpoint = "" },
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: "service name",
		},
		{
			name: "enabled without endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = ""
			},
			wantErr: "endpoint",
		},
		{
			name: "bad protocol",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "quic"
			},
			wantErr: "protocol",
		},
		{
			name: "sample rate above one",
			mutate: func(c *Config) {
				c.Enabled = true
				c.SampleRate = 2
			},
			wantErr: "sample rate",
		},
		{
			name: "zero export interval",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ExportInterval = 0
			},
			wantErr: "export interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig("beacond", "0.1.0")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDisabledTelemetryIsNoop(t *testing.T) {
	cfg := NewDefaultConfig("beacond", "0.1.0")

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)

	// No-op tracer and meter still work.
	tracer := tel.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	span.End()

	meter := tel.Meter("test")
	counter, err := meter.Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.IsEnabled())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig("", "")
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *Telemetry

	assert.False(t, tel.IsEnabled())
	assert.True(t, tel.Health().Degraded)
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))

	_, span := tel.Tracer("test").Start(context.Background(), "op")
	span.End()
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("otel:4318"))
}

func TestShutdownHonorsConfiguredTimeout(t *testing.T) {
	cfg := NewDefaultConfig("beacond", "0.1.0")
	cfg.ShutdownTimeout = 10 * time.Millisecond

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, tel.Shutdown(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}
