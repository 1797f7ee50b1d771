// Package lifecycle coordinates server readiness and teardown.
//
// A Machine moves through UNINITIALIZED, INITIALIZING, OPERATIONAL,
// SHUTTING_DOWN and SHUTDOWN in that order and never backwards. Request
// handlers consult IsOperational and refuse work outside OPERATIONAL;
// nothing is queued across states.
//
// Shutdown runs cleanup hooks registered with OnShutdown in registration
// order. Hook failures are logged and do not abort the remaining hooks, so
// a broken subsystem cannot wedge process exit. HandleSignals wires
// SIGINT/SIGTERM to Shutdown exactly once.
package lifecycle
