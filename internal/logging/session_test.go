package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_CreateGetRemove(t *testing.T) {
	r := NewSessionRegistry()

	id := r.CreateSession("stdio", "client-1", []string{"logging", "tools"})
	require.NotEmpty(t, id)

	s, ok := r.GetSession(id)
	require.True(t, ok)
	assert.Equal(t, id, s.SessionID)
	assert.Equal(t, "stdio", s.TransportType)
	assert.Equal(t, "client-1", s.ClientID)
	assert.Equal(t, []string{"logging", "tools"}, s.Capabilities)
	assert.False(t, s.ConnectedAt.IsZero())

	assert.True(t, r.RemoveSession(id))
	_, ok = r.GetSession(id)
	assert.False(t, ok)
	assert.False(t, r.RemoveSession(id), "removing an unknown id is a no-op")
}

func TestSessionRegistry_AdoptUpdatesCapabilities(t *testing.T) {
	r := NewSessionRegistry()

	r.AdoptSession("mcp-1", "stdio", "", nil)
	r.AdoptSession("mcp-1", "stdio", "inspector", []string{"sampling"})

	s, ok := r.GetSession("mcp-1")
	require.True(t, ok)
	assert.Equal(t, "inspector", s.ClientID)
	assert.Equal(t, []string{"sampling"}, s.Capabilities)
	assert.Equal(t, 1, r.Count())
}

func TestSessionRegistry_Statistics(t *testing.T) {
	r := NewSessionRegistry()
	a := r.CreateSession("stdio", "", nil)
	b := r.CreateSession("http", "", nil)

	stats := r.Statistics(3)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 3, stats.ActiveTraces)
	require.Len(t, stats.Sessions, 2)

	ids := []string{stats.Sessions[0].SessionID, stats.Sessions[1].SessionID}
	assert.ElementsMatch(t, []string{a, b}, ids)
}

func TestSessionRegistry_EnrichLogData(t *testing.T) {
	r := NewSessionRegistry()
	id := r.CreateSession("stdio", "client-9", nil)

	ctx := WithSession(context.Background(), id)
	data := r.EnrichLogData(ctx, map[string]any{"op": "list"})

	require.Contains(t, data, "_session")
	session := data["_session"].(map[string]any)
	assert.Equal(t, id, session["sessionId"])
	assert.Equal(t, "stdio", session["transport"])
	assert.Equal(t, "client-9", session["clientId"])
	assert.Equal(t, "list", data["op"])
}

func TestSessionRegistry_EnrichLogData_NoSession(t *testing.T) {
	r := NewSessionRegistry()

	data := r.EnrichLogData(context.Background(), map[string]any{"op": "list"})
	assert.NotContains(t, data, "_session")

	// A stale id that is no longer registered enriches nothing.
	ctx := WithSession(context.Background(), "gone")
	data = r.EnrichLogData(ctx, nil)
	assert.Nil(t, data)
}

func TestSessionRegistry_ContextScoping(t *testing.T) {
	r := NewSessionRegistry()
	first := r.CreateSession("stdio", "", nil)
	second := r.CreateSession("http", "", nil)

	ctxA := WithSession(context.Background(), first)
	ctxB := WithSession(context.Background(), second)

	dataA := r.EnrichLogData(ctxA, map[string]any{})
	dataB := r.EnrichLogData(ctxB, map[string]any{})

	// Two interleaved flows each see only their own session.
	assert.Equal(t, first, dataA["_session"].(map[string]any)["sessionId"])
	assert.Equal(t, second, dataB["_session"].(map[string]any)["sessionId"])
}
