package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/beacond/internal/lifecycle"
	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// handshakeMethods may arrive before the server is operational.
var handshakeMethods = map[string]bool{
	"initialize":                true,
	"notifications/initialized": true,
	"ping":                      true,
}

// dispatchMiddleware returns the receiving middleware that drives the
// lifecycle machine, adopts sessions into the registry, gates dispatch on
// readiness, and traces every request.
func (s *Server) dispatchMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ctx = s.adoptSession(ctx, method, req)

			switch method {
			case "initialize":
				if err := s.handleInitialize(ctx, req); err != nil {
					return nil, err
				}
			case "notifications/initialized":
				if err := s.machine.MarkInitialized(ctx); err != nil {
					return nil, err
				}
			default:
				// Work is refused outside OPERATIONAL, never queued.
				// Handshake methods (ping included) stay reachable in
				// every state.
				if !handshakeMethods[method] && !s.machine.IsOperational() {
					return nil, fmt.Errorf("server is not operational (state: %s)", s.machine.State())
				}
			}

			ctx, spanID := s.logger.LogEndpointEntry(ctx, method, nil)
			result, err := next(ctx, method, req)
			if err != nil {
				s.logger.EndOperation(ctx, spanID, map[string]any{"error": err.Error()})
				return nil, err
			}
			s.logger.EndOperation(ctx, spanID, nil)
			return result, nil
		}
	}
}

// adoptSession registers the transport session in the diagnostics registry
// and scopes the context to it.
func (s *Server) adoptSession(ctx context.Context, method string, req mcp.Request) context.Context {
	sess := req.GetSession()
	if sess == nil {
		return ctx
	}
	if ss, ok := sess.(*mcp.ServerSession); ok && ss == nil {
		return ctx
	}
	id := sess.ID()
	if id == "" {
		return ctx
	}

	if _, known := s.logger.Sessions().GetSession(id); !known {
		clientID := ""
		if params, ok := req.GetParams().(*mcp.InitializeParams); ok && params != nil && params.ClientInfo != nil {
			clientID = params.ClientInfo.Name
		}
		s.logger.Sessions().AdoptSession(id, "stdio", clientID, Capabilities())
	}
	return logging.WithSession(ctx, id)
}

// handleInitialize mirrors the SDK's handshake into the lifecycle machine.
func (s *Server) handleInitialize(ctx context.Context, req mcp.Request) error {
	lreq := lifecycle.InitializeRequest{}
	if params, ok := req.GetParams().(*mcp.InitializeParams); ok && params != nil {
		lreq.ProtocolVersion = params.ProtocolVersion
		if params.ClientInfo != nil {
			lreq.ClientName = params.ClientInfo.Name
		}
	}
	_, err := s.machine.HandleInitializeRequest(ctx, lreq)
	return err
}
