package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers the demo prompts with the server.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "diagnose",
		Description: "Build a prompt asking the model to interpret beacond's current diagnostics",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "focus",
				Description: "Area to focus on: sessions, traces, or rate limiting",
			},
		},
	}, s.getDiagnosePrompt)
}

func (s *Server) getDiagnosePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := "overall health"
	if req.Params != nil {
		if f, ok := req.Params.Arguments["focus"]; ok && f != "" {
			focus = f
		}
	}

	stats := s.logger.Statistics()
	text := fmt.Sprintf(
		"The beacond server is in state %s with %d connected sessions and %d operations in flight. "+
			"Review the diagnostics with a focus on %s and point out anything unusual.",
		s.machine.State(), stats.SessionStats.ActiveSessions, stats.SessionStats.ActiveTraces, focus,
	)

	return &mcp.GetPromptResult{
		Description: "Diagnostics review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}, nil
}
