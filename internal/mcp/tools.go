package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// registerTools registers the demo tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "echo",
		Description: "Echo a message back, optionally repeated",
	}, s.handleEcho)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "server_stats",
		Description: "Report server uptime, lifecycle state, and diagnostics statistics",
	}, s.handleServerStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_log_level",
		Description: "Change the server's minimum log severity at runtime",
	}, s.handleSetLogLevel)
}

// ===== ECHO =====

type echoInput struct {
	Message string `json:"message" jsonschema:"required,Message to echo back"`
	Repeat  int    `json:"repeat,omitempty" jsonschema:"Number of repetitions (default 1, max 10)"`
}

type echoOutput struct {
	Message string `json:"message" jsonschema:"Echoed message"`
	Repeat  int    `json:"repeat" jsonschema:"Repetitions applied"`
}

func (s *Server) handleEcho(ctx context.Context, req *mcp.CallToolRequest, args echoInput) (*mcp.CallToolResult, echoOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, "echo")
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, "echo")
		s.metrics.RecordInvocation(ctx, "echo", time.Since(start), toolErr)
	}()

	if args.Message == "" {
		toolErr = fmt.Errorf("message is required")
		return nil, echoOutput{}, toolErr
	}
	repeat := args.Repeat
	if repeat < 1 {
		repeat = 1
	}
	if repeat > 10 {
		toolErr = fmt.Errorf("invalid repeat %d: must be at most 10", args.Repeat)
		return nil, echoOutput{}, toolErr
	}

	text := ""
	for i := 0; i < repeat; i++ {
		text += args.Message
		if i < repeat-1 {
			text += " "
		}
	}

	s.logger.Debug(ctx, map[string]any{
		"message": "echo handled",
		"length":  len(args.Message),
		"repeat":  repeat,
	})

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, echoOutput{Message: text, Repeat: repeat}, nil
}

// ===== SERVER STATS =====

type serverStatsInput struct{}

type serverStatsOutput struct {
	State          string                   `json:"state" jsonschema:"Lifecycle state"`
	UptimeSeconds  float64                  `json:"uptime_seconds" jsonschema:"Seconds since server start"`
	ActiveSessions int                      `json:"active_sessions" jsonschema:"Connected session count"`
	ActiveTraces   int                      `json:"active_traces" jsonschema:"Operations currently in flight"`
	Sessions       []logging.SessionContext `json:"sessions" jsonschema:"Connected session details"`
}

func (s *Server) handleServerStats(ctx context.Context, req *mcp.CallToolRequest, args serverStatsInput) (*mcp.CallToolResult, serverStatsOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, "server_stats")
	defer func() {
		s.metrics.DecrementActive(ctx, "server_stats")
		s.metrics.RecordInvocation(ctx, "server_stats", time.Since(start), nil)
	}()

	stats := s.logger.Statistics()
	out := serverStatsOutput{
		State:          s.machine.State().String(),
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		ActiveSessions: stats.SessionStats.ActiveSessions,
		ActiveTraces:   stats.SessionStats.ActiveTraces,
		Sessions:       stats.SessionStats.Sessions,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(
				"state=%s uptime=%.0fs sessions=%d traces=%d",
				out.State, out.UptimeSeconds, out.ActiveSessions, out.ActiveTraces,
			)},
		},
	}, out, nil
}

// ===== SET LOG LEVEL =====

type setLogLevelInput struct {
	Level string `json:"level" jsonschema:"required,Minimum severity: debug info notice warning error critical alert emergency"`
}

type setLogLevelOutput struct {
	Level string `json:"level" jsonschema:"Severity now in effect"`
}

func (s *Server) handleSetLogLevel(ctx context.Context, req *mcp.CallToolRequest, args setLogLevelInput) (*mcp.CallToolResult, setLogLevelOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, "set_log_level")
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, "set_log_level")
		s.metrics.RecordInvocation(ctx, "set_log_level", time.Since(start), toolErr)
	}()

	if err := s.logger.SetLevel(args.Level); err != nil {
		toolErr = fmt.Errorf("invalid level %q: %w", args.Level, err)
		return nil, setLogLevelOutput{}, toolErr
	}

	s.logger.Notice(ctx, map[string]any{
		"message": "log level changed",
		"level":   args.Level,
	})

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Log level set to %s", args.Level)},
		},
	}, setLogLevelOutput{Level: args.Level}, nil
}
