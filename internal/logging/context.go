package logging

import (
	"context"
)

// Context key types. Current session and current span travel on the request
// context, never in package-level state, so interleaved requests cannot
// observe each other's correlation identifiers.
type sessionCtxKey struct{}
type spanCtxKey struct{}
type loggerCtxKey struct{}

// WithSession stamps the current session id onto the context. The logger
// consults it to enrich every record emitted under this context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sessionID)
}

// SessionFromContext extracts the current session id, or "".
func SessionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// withSpan pushes a span as the context's current operation. The previous
// current span remains reachable through the span's parent linkage.
func withSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, spanCtxKey{}, s)
}

// spanFromContext returns the context's current in-flight span, or nil.
func spanFromContext(ctx context.Context) *Span {
	if s, ok := ctx.Value(spanCtxKey{}).(*Span); ok {
		return s
	}
	return nil
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger from the context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
