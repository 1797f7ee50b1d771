// Package mcp provides the beacond MCP server built on the MCP SDK
// (github.com/modelcontextprotocol/go-sdk/mcp).
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/beacond/internal/lifecycle"
	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// serverCapabilities is the capability set advertised during the lifecycle
// handshake.
var serverCapabilities = []string{"tools", "resources", "prompts", "logging"}

// Server exposes beacond's demo tools over MCP and feeds every request
// through the diagnostics pipeline.
type Server struct {
	mcp       *mcp.Server
	logger    *logging.Logger
	machine   *lifecycle.Machine
	metrics   *Metrics
	startedAt time.Time
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "beacond").
	Name string

	// Version is the server version (default: "0.1.0").
	Version string

	// Logger is the diagnostics pipeline. Required.
	Logger *logging.Logger

	// Machine gates request dispatch on lifecycle state. Required.
	Machine *lifecycle.Machine
}

// DefaultConfig returns sensible defaults without logger or machine.
func DefaultConfig() *Config {
	return &Config{
		Name:    "beacond",
		Version: "0.1.0",
	}
}

// NewServer creates the MCP server, registers tools, resources, prompts, and
// the dispatch middleware.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Machine == nil {
		return nil, fmt.Errorf("lifecycle machine is required")
	}
	if cfg.Name == "" {
		cfg.Name = "beacond"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		logger:    cfg.Logger.Named("mcp"),
		machine:   cfg.Machine,
		metrics:   NewMetrics(cfg.Logger),
		startedAt: time.Now(),
	}

	s.mcp.AddReceivingMiddleware(s.dispatchMiddleware())

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s, nil
}

// Capabilities returns the advertised capability set.
func Capabilities() []string {
	return append([]string(nil), serverCapabilities...)
}

// Notifier returns a notification sink forwarding log records to every
// connected client session.
func (s *Server) Notifier() *SessionNotifier {
	return NewSessionNotifier(s.mcp, s.logger)
}

// Run starts the MCP server on the stdio transport and blocks until the
// context is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
