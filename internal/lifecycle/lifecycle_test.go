package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

func newTestMachine(t *testing.T) (*Machine, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger()
	return NewMachine(tl.Logger, []string{"tools", "resources", "logging"}), tl
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "UNINITIALIZED", StateUninitialized.String())
	assert.Equal(t, "INITIALIZING", StateInitializing.String())
	assert.Equal(t, "OPERATIONAL", StateOperational.String())
	assert.Equal(t, "SHUTTING_DOWN", StateShuttingDown.String())
	assert.Equal(t, "SHUTDOWN", StateShutdown.String())
	assert.Equal(t, "State(99)", State(99).String())
}

func TestHappyPath(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	assert.Equal(t, StateUninitialized, m.State())
	assert.False(t, m.IsOperational())

	m.Initialize(ctx, ServerInfo{Name: "beacond", Version: "0.1.0"})
	assert.Equal(t, StateInitializing, m.State())

	res, err := m.HandleInitializeRequest(ctx, InitializeRequest{
		ProtocolVersion: "2025-03-26",
		ClientName:      "test-client",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-26", res.ProtocolVersion)
	assert.Equal(t, "beacond", res.ServerInfo.Name)
	assert.Contains(t, res.Capabilities, "logging")

	require.NoError(t, m.MarkInitialized(ctx))
	assert.True(t, m.IsOperational())
	assert.Equal(t, "2025-03-26", m.NegotiatedVersion())

	m.Shutdown(ctx, "test")
	assert.Equal(t, StateShutdown, m.State())
	assert.False(t, m.IsOperational())
}

func TestUnknownProtocolVersionGetsNewest(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()
	m.Initialize(ctx, ServerInfo{Name: "beacond"})

	res, err := m.HandleInitializeRequest(ctx, InitializeRequest{ProtocolVersion: "1999-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-18", res.ProtocolVersion)
}

func TestInitializeRequestOutsideInitializing(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	_, err := m.HandleInitializeRequest(ctx, InitializeRequest{ProtocolVersion: "2025-06-18"})
	assert.ErrorIs(t, err, ErrNotInitializing)

	m.Initialize(ctx, ServerInfo{Name: "beacond"})
	_, err = m.HandleInitializeRequest(ctx, InitializeRequest{ProtocolVersion: "2025-06-18"})
	require.NoError(t, err)
	require.NoError(t, m.MarkInitialized(ctx))

	_, err = m.HandleInitializeRequest(ctx, InitializeRequest{ProtocolVersion: "2025-06-18"})
	assert.ErrorIs(t, err, ErrNotInitializing)
}

func TestMarkInitializedBeforeNegotiation(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()
	m.Initialize(ctx, ServerInfo{Name: "beacond"})

	err := m.MarkInitialized(ctx)
	assert.ErrorIs(t, err, ErrNotNegotiated)
	assert.Equal(t, StateInitializing, m.State())
}

func TestDoubleInitializeWarnsAndIsNoop(t *testing.T) {
	m, tl := newTestMachine(t)
	ctx := context.Background()

	m.Initialize(ctx, ServerInfo{Name: "beacond"})
	m.Initialize(ctx, ServerInfo{Name: "other"})

	assert.Equal(t, StateInitializing, m.State())
	tl.AssertLogged(t, logging.SeverityWarning, "initialize called more than once")
}

func TestShutdownRunsHooksInOrder(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()
	m.Initialize(ctx, ServerInfo{Name: "beacond"})
	_, err := m.HandleInitializeRequest(ctx, InitializeRequest{ProtocolVersion: "2025-06-18"})
	require.NoError(t, err)
	require.NoError(t, m.MarkInitialized(ctx))

	var order []string
	m.OnShutdown("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.OnShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})
	m.OnShutdown("third", func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	m.Shutdown(ctx, "test")
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestHookFailureDoesNotStopRemainingHooks(t *testing.T) {
	m, tl := newTestMachine(t)
	ctx := context.Background()

	var order []string
	m.OnShutdown("broken", func(ctx context.Context) error {
		order = append(order, "broken")
		return errors.New("flush failed")
	})
	m.OnShutdown("survivor", func(ctx context.Context) error {
		order = append(order, "survivor")
		return nil
	})

	m.Shutdown(ctx, "test")

	assert.Equal(t, []string{"broken", "survivor"}, order)
	assert.Equal(t, StateShutdown, m.State())
	tl.AssertLogged(t, logging.SeverityError, "shutdown hook failed")
	entries := tl.FilterMessage("shutdown hook failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["hook"])
}

func TestDoubleShutdownWarnsAndIsNoop(t *testing.T) {
	m, tl := newTestMachine(t)
	ctx := context.Background()

	calls := 0
	m.OnShutdown("once", func(ctx context.Context) error {
		calls++
		return nil
	})

	m.Shutdown(ctx, "first")
	m.Shutdown(ctx, "second")

	assert.Equal(t, 1, calls)
	assert.Equal(t, StateShutdown, m.State())
	tl.AssertLogged(t, logging.SeverityWarning, "shutdown called more than once")
}

func TestShutdownFromUninitialized(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Shutdown(context.Background(), "early exit")
	assert.Equal(t, StateShutdown, m.State())
}

func TestHandleSignalsShutsDownOnCancel(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx, cancel := context.WithCancel(context.Background())

	m.HandleSignals(ctx)
	m.HandleSignals(ctx) // second call is a no-op

	cancel()
	<-m.Done()
	assert.Equal(t, StateShutdown, m.State())
}

func TestDoneClosesAfterShutdown(t *testing.T) {
	m, _ := newTestMachine(t)

	select {
	case <-m.Done():
		t.Fatal("done closed before shutdown")
	default:
	}

	m.Shutdown(context.Background(), "test")
	select {
	case <-m.Done():
	default:
		t.Fatal("done not closed after shutdown")
	}
}
