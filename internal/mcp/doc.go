// Package mcp is the protocol shell around beacond's diagnostics layer.
//
// The server registers a small set of demo tools (echo, server_stats,
// set_log_level), a stats resource, and a diagnose prompt. A receiving
// middleware mirrors the protocol handshake into the lifecycle machine,
// adopts sessions into the logging registry, refuses requests outside the
// OPERATIONAL state, and traces every dispatched method.
//
// SessionNotifier closes the loop back to clients: log records accepted by
// the pipeline are forwarded as notifications/message to every connected
// session, subject to the pipeline's forward throttle.
package mcp
