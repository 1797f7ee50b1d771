package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beacond/internal/lifecycle"
	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// newTestServer builds a server over an observing logger. The lifecycle
// machine starts UNINITIALIZED; tests drive it as far as they need.
func newTestServer(t *testing.T) (*Server, *logging.TestLogger, *lifecycle.Machine) {
	t.Helper()
	tl := logging.NewTestLogger()
	machine := lifecycle.NewMachine(tl.Logger, Capabilities())
	s, err := NewServer(&Config{
		Name:    "beacond-test",
		Version: "0.0.1",
		Logger:  tl.Logger,
		Machine: machine,
	})
	require.NoError(t, err)
	return s, tl, machine
}

// makeOperational walks the machine through the full handshake.
func makeOperational(t *testing.T, machine *lifecycle.Machine) {
	t.Helper()
	ctx := context.Background()
	machine.Initialize(ctx, lifecycle.ServerInfo{Name: "beacond-test", Version: "0.0.1"})
	_, err := machine.HandleInitializeRequest(ctx, lifecycle.InitializeRequest{
		ProtocolVersion: "2025-06-18",
	})
	require.NoError(t, err)
	require.NoError(t, machine.MarkInitialized(ctx))
}

func TestNewServerRequiresLoggerAndMachine(t *testing.T) {
	_, err := NewServer(&Config{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")

	tl := logging.NewTestLogger()
	_, err = NewServer(&Config{Name: "x", Logger: tl.Logger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lifecycle machine is required")
}

func TestNewServerDefaults(t *testing.T) {
	tl := logging.NewTestLogger()
	machine := lifecycle.NewMachine(tl.Logger, Capabilities())
	s, err := NewServer(&Config{Logger: tl.Logger, Machine: machine})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NotNil(t, s.metrics)
	assert.NotNil(t, s.Notifier())
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := Capabilities()
	require.Contains(t, caps, "logging")
	caps[0] = "mutated"
	assert.NotContains(t, Capabilities(), "mutated")
}
