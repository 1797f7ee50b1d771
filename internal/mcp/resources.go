package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const statsResourceURI = "beacond://server/stats"

// registerResources registers the demo resources with the server.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         statsResourceURI,
		Name:        "server-stats",
		Description: "Current server lifecycle state and diagnostics statistics",
		MIMEType:    "application/json",
	}, s.readStatsResource)
}

func (s *Server) readStatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	stats := s.logger.Statistics()
	payload := map[string]any{
		"state":          s.machine.State().String(),
		"uptimeSeconds":  time.Since(s.startedAt).Seconds(),
		"activeSessions": stats.SessionStats.ActiveSessions,
		"activeTraces":   stats.SessionStats.ActiveTraces,
		"sessions":       stats.SessionStats.Sessions,
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding stats resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      statsResourceURI,
				MIMEType: "application/json",
				Text:     string(body),
			},
		},
	}, nil
}
