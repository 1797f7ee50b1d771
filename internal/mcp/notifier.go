package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// SessionNotifier forwards log records to connected clients as MCP
// notifications/message. The SDK drops records below each session's
// client-set level, so per-client filtering needs no bookkeeping here.
type SessionNotifier struct {
	server *mcp.Server
	logger *logging.Logger
}

// NewSessionNotifier creates a notifier over the given server's sessions.
func NewSessionNotifier(server *mcp.Server, logger *logging.Logger) *SessionNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	// Delivery failures are logged locally only; forwarding them back into
	// the notification path would feed the failure to itself.
	return &SessionNotifier{server: server, logger: logger.WithoutForwarding()}
}

// Notify implements logging.NotificationSink. A failed send to one session
// does not stop delivery to the others.
func (n *SessionNotifier) Notify(ctx context.Context, rec logging.Record) {
	params := &mcp.LoggingMessageParams{
		Level:  mcp.LoggingLevel(rec.Severity.String()),
		Logger: rec.Module,
		Data:   notificationPayload(rec),
	}
	for session := range n.server.Sessions() {
		if err := session.Log(ctx, params); err != nil {
			n.logger.Debug(ctx, map[string]any{
				"message":   "log notification send failed",
				"sessionId": session.ID(),
				"error":     err.Error(),
			})
		}
	}
}

func notificationPayload(rec logging.Record) map[string]any {
	payload := map[string]any{
		"message":   rec.Message,
		"timestamp": rec.Time.UTC().Format(time.RFC3339Nano),
	}
	if len(rec.Data) > 0 {
		payload["data"] = rec.Data
	}
	return payload
}
