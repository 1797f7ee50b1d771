package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

// State is the server readiness state. Transitions are monotonic and
// one-directional; no state is re-entered once passed.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateOperational
	StateShuttingDown
	StateShutdown
)

var stateNames = map[State]string{
	StateUninitialized: "UNINITIALIZED",
	StateInitializing:  "INITIALIZING",
	StateOperational:   "OPERATIONAL",
	StateShuttingDown:  "SHUTTING_DOWN",
	StateShutdown:      "SHUTDOWN",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrNotInitializing is returned when the initialize handshake arrives
// outside the INITIALIZING state.
var ErrNotInitializing = fmt.Errorf("server is not initializing")

// ErrNotNegotiated is returned when MarkInitialized is called before a
// completed capability negotiation.
var ErrNotNegotiated = fmt.Errorf("capability negotiation has not completed")

// SupportedProtocolVersions lists the protocol revisions the server speaks,
// newest first. Negotiation echoes a known client version and answers with
// the newest otherwise.
var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// ServerInfo identifies the server in the initialize exchange.
type ServerInfo struct {
	Name    string
	Version string
}

// InitializeRequest is the client's half of the handshake.
type InitializeRequest struct {
	ProtocolVersion string
	ClientName      string
	Capabilities    []string
}

// InitializeResult is the server's answer.
type InitializeResult struct {
	ProtocolVersion string
	ServerInfo      ServerInfo
	Capabilities    []string
}

// ShutdownHook is an ordered cleanup step run during shutdown.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	run  ShutdownHook
}

// Machine is the process-wide lifecycle state machine. It gates request
// dispatch: handlers consult IsOperational and refuse (not queue) work when
// it reports false.
type Machine struct {
	logger *logging.Logger

	mu           sync.Mutex
	state        State
	serverInfo   ServerInfo
	capabilities []string
	negotiated   string
	clientCaps   []string
	hooks        []namedHook
	done         chan struct{}

	signalOnce sync.Once
}

// NewMachine creates a machine in UNINITIALIZED with the server's advertised
// capability set.
func NewMachine(logger *logging.Logger, capabilities []string) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Machine{
		logger:       logger.Named("lifecycle"),
		state:        StateUninitialized,
		capabilities: capabilities,
		done:         make(chan struct{}),
	}
}

// Done returns a channel closed once shutdown has completed, hooks included.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOperational reports whether the server may accept work.
func (m *Machine) IsOperational() bool {
	return m.State() == StateOperational
}

// Initialize moves UNINITIALIZED to INITIALIZING. Calling it again after the
// machine has left UNINITIALIZED logs a warning and is a no-op.
func (m *Machine) Initialize(ctx context.Context, info ServerInfo) {
	m.mu.Lock()
	if m.state != StateUninitialized {
		state := m.state
		m.mu.Unlock()
		m.logger.Warning(ctx, map[string]any{
			"message": "initialize called more than once",
			"state":   state.String(),
		})
		return
	}
	m.state = StateInitializing
	m.serverInfo = info
	m.mu.Unlock()

	m.logger.Info(ctx, map[string]any{
		"message": "server initializing",
		"name":    info.Name,
		"version": info.Version,
	})
}

// HandleInitializeRequest negotiates the protocol version and capability set.
// It must arrive while INITIALIZING; anywhere else the handshake is rejected
// so the caller knows the server cannot become operational.
func (m *Machine) HandleInitializeRequest(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	m.mu.Lock()
	if m.state != StateInitializing {
		state := m.state
		m.mu.Unlock()
		return InitializeResult{}, fmt.Errorf("%w: state is %s", ErrNotInitializing, state)
	}
	version := negotiateVersion(req.ProtocolVersion)
	m.negotiated = version
	m.clientCaps = append([]string(nil), req.Capabilities...)
	info := m.serverInfo
	caps := append([]string(nil), m.capabilities...)
	m.mu.Unlock()

	m.logger.Info(ctx, map[string]any{
		"message":          "protocol negotiated",
		"clientVersion":    req.ProtocolVersion,
		"negotiated":       version,
		"client":           req.ClientName,
		"clientCapability": req.Capabilities,
	})

	return InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      info,
		Capabilities:    caps,
	}, nil
}

// MarkInitialized moves INITIALIZING to OPERATIONAL once negotiation has
// completed.
func (m *Machine) MarkInitialized(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateInitializing {
		state := m.state
		m.mu.Unlock()
		m.logger.Warning(ctx, map[string]any{
			"message": "markInitialized outside INITIALIZING",
			"state":   state.String(),
		})
		return nil
	}
	if m.negotiated == "" {
		m.mu.Unlock()
		return ErrNotNegotiated
	}
	m.state = StateOperational
	m.mu.Unlock()

	m.logger.Notice(ctx, "server operational")
	return nil
}

// NegotiatedVersion returns the agreed protocol version, or "".
func (m *Machine) NegotiatedVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.negotiated
}

// OnShutdown registers a cleanup hook. Hooks run in registration order
// during Shutdown.
func (m *Machine) OnShutdown(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, run: hook})
}

// Shutdown moves to SHUTTING_DOWN, runs every registered hook in order, and
// settles in SHUTDOWN. A failing hook is reported through the logger and does
// not stop the remaining hooks. Calling Shutdown again is a warned no-op.
func (m *Machine) Shutdown(ctx context.Context, reason string) {
	m.mu.Lock()
	if m.state >= StateShuttingDown {
		state := m.state
		m.mu.Unlock()
		m.logger.Warning(ctx, map[string]any{
			"message": "shutdown called more than once",
			"state":   state.String(),
		})
		return
	}
	m.state = StateShuttingDown
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	m.logger.Notice(ctx, map[string]any{
		"message": "server shutting down",
		"reason":  reason,
		"hooks":   len(hooks),
	})

	for _, h := range hooks {
		if err := h.run(ctx); err != nil {
			m.logger.LogServerError(ctx, err, "shutdown hook failed",
				map[string]any{"hook": h.name})
		}
	}

	m.mu.Lock()
	m.state = StateShutdown
	m.mu.Unlock()

	m.logger.Notice(ctx, "server shutdown complete")
	close(m.done)
}

// negotiateVersion echoes a supported client version and answers with the
// newest supported revision otherwise.
func negotiateVersion(clientVersion string) string {
	for _, v := range SupportedProtocolVersions {
		if v == clientVersion {
			return v
		}
	}
	return SupportedProtocolVersions[0]
}
