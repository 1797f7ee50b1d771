// Package logging is beacond's diagnostics core: structured records with
// synthesized trace/span correlation, severity policy, sensitive field
// redaction, and rate limiting, behind one emission façade.
//
// # Overview
//
// The Logger composes five leaf components into a single pipeline:
//   - Policy: the process-wide minimum severity (8-level syslog scale)
//   - Redactor: structural deep redaction of sensitive keys
//   - Limiter: per-window record caps with critical-and-above bypass
//   - Correlator: trace/span identifiers threaded through nested operations
//   - SessionRegistry: active client sessions and their statistics
//
// Each record passes through normalize, enrich (session + trace), redact,
// threshold, rate limit, emit, forward. The sink is a zapcore.Core; records
// render as one JSON line with the reserved _trace and _session keys carrying
// correlation metadata.
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSession(ctx, sessionID)
//	ctx, span := logger.StartOperation(ctx, "index-repository", nil)
//	logger.Named("indexer").Info(ctx, map[string]any{
//	    "message": "indexing started",
//	    "path":    path,
//	})
//	logger.EndOperation(ctx, span, map[string]any{"files": n})
//
// # Correlation
//
// The current session id and the current span travel on the context, never in
// package-level state; interleaved requests cannot observe each other's
// identifiers. An operation started while another is current inherits its
// traceId and records it as the parent. End calls locate their span by
// identifier, so overlapping operations may complete in either order.
//
// # Rate limiting
//
// Windows are wall-clock aligned. Suppression is reported as a single notice
// when a window first overflows and a single aggregate count when the next
// window opens, never once per dropped record. Severities at critical and
// above always bypass the limiter.
//
// # Failure policy
//
// Logging never fails the caller: malformed payloads degrade to best-effort
// rendering, ending an unknown span logs a warning, and the notification sink
// runs on its own goroutine behind a forward-rate limiter. The one rejected
// input is an unrecognized severity name, surfaced as ErrInvalidSeverity.
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message")
//	tl.AssertLogged(t, logging.SeverityInfo, "test message")
package logging
