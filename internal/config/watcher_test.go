package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsReloadedConfig(t *testing.T) {
	path := fakeHome(t)
	writeConfig(t, path, "logging:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeConfig(t, path, "logging:\n  level: debug\n")

	select {
	case cfg := <-w.Changes():
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcherDropsInvalidEdit(t *testing.T) {
	path := fakeHome(t)
	writeConfig(t, path, "logging:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeConfig(t, path, "logging:\n  format: xml\n")

	select {
	case err := <-w.Errors():
		assert.Contains(t, err.Error(), "config reload")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	select {
	case cfg := <-w.Changes():
		t.Fatalf("unexpected config emitted: %+v", cfg)
	default:
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path := fakeHome(t)
	writeConfig(t, path, "logging:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	other := path + ".bak"
	writeConfig(t, other, "unrelated: true\n")

	select {
	case cfg := <-w.Changes():
		t.Fatalf("unexpected config emitted: %+v", cfg)
	case <-time.After(time.Second):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := fakeHome(t)
	writeConfig(t, path, "logging:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)

	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}
