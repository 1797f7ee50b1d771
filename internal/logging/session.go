package logging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionContext describes one connected client session.
type SessionContext struct {
	SessionID     string    `json:"sessionId"`
	ClientID      string    `json:"clientId,omitempty"`
	TransportType string    `json:"transportType"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
}

// SessionStats is the registry's aggregate snapshot.
type SessionStats struct {
	ActiveSessions int              `json:"activeSessions"`
	ActiveTraces   int              `json:"activeTraces"`
	Sessions       []SessionContext `json:"sessions"`
}

// SessionRegistry tracks active client sessions keyed by session id.
//
// The registry holds the authoritative session records; which session is
// "current" for a flow of execution is a context concern (WithSession), so
// concurrent requests never contaminate each other's enrichment.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionContext
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*SessionContext),
		now:      time.Now,
	}
}

// CreateSession registers a new session and returns its generated id.
func (r *SessionRegistry) CreateSession(transportType, clientID string, capabilities []string) string {
	id := uuid.NewString()
	r.AdoptSession(id, transportType, clientID, capabilities)
	return id
}

// AdoptSession registers a session under an externally issued id, such as the
// id minted by the protocol transport. Re-adopting an existing id updates the
// session in place.
func (r *SessionRegistry) AdoptSession(id, transportType, clientID string, capabilities []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		existing.ClientID = clientID
		existing.Capabilities = append([]string(nil), capabilities...)
		return
	}
	r.sessions[id] = &SessionContext{
		SessionID:     id,
		ClientID:      clientID,
		TransportType: transportType,
		Capabilities:  append([]string(nil), capabilities...),
		ConnectedAt:   r.now(),
	}
}

// GetSession returns a copy of the session, if present.
func (r *SessionRegistry) GetSession(id string) (SessionContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return SessionContext{}, false
	}
	return *s, true
}

// RemoveSession drops the session. Removing an unknown id is a no-op.
func (r *SessionRegistry) RemoveSession(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Statistics snapshots the registry. activeTraces is supplied by the
// correlator so the two counters land in one consistent view.
func (r *SessionRegistry) Statistics(activeTraces int) SessionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]SessionContext, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].ConnectedAt.Equal(sessions[j].ConnectedAt) {
			return sessions[i].ConnectedAt.Before(sessions[j].ConnectedAt)
		}
		return sessions[i].SessionID < sessions[j].SessionID
	})

	return SessionStats{
		ActiveSessions: len(sessions),
		ActiveTraces:   activeTraces,
		Sessions:       sessions,
	}
}

// EnrichLogData merges the context's current session identity into the
// payload under the reserved _session key. The payload is returned unchanged
// when no session is current or the id is no longer registered.
func (r *SessionRegistry) EnrichLogData(ctx context.Context, data map[string]any) map[string]any {
	id := SessionFromContext(ctx)
	if id == "" {
		return data
	}
	s, ok := r.GetSession(id)
	if !ok {
		return data
	}
	if data == nil {
		data = make(map[string]any, 1)
	}
	session := map[string]any{
		"sessionId": s.SessionID,
		"transport": s.TransportType,
	}
	if s.ClientID != "" {
		session["clientId"] = s.ClientID
	}
	data["_session"] = session
	return data
}
