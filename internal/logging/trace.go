package logging

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span is one timed operation correlated to a trace. A child operation
// started while a parent is current inherits the parent's TraceID and records
// the parent's SpanID as ParentSpanID.
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	Attributes   map[string]any
	StartedAt    time.Time

	parent   *Span
	otelSpan oteltrace.Span
}

// Correlator issues trace/span identifiers and tracks in-flight spans.
//
// The "current" span for a logical flow of execution travels on the
// context (withSpan); the correlator's registry exists so an end call can
// locate its span by identifier rather than by stack position, tolerating
// overlapping operations that complete out of order.
type Correlator struct {
	mu       sync.RWMutex
	inflight map[string]*Span

	tracer oteltrace.Tracer
	now    func() time.Time
}

// NewCorrelator creates a correlator with no OTel mirroring.
func NewCorrelator() *Correlator {
	return &Correlator{
		inflight: make(map[string]*Span),
		now:      time.Now,
	}
}

// SetTracer mirrors every operation into real OTel spans. Export stays the
// tracer provider's concern; correlation identifiers remain locally generated
// either way.
func (c *Correlator) SetTracer(t oteltrace.Tracer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracer = t
}

// newTraceID returns a 128-bit identifier rendered as 32 hex characters.
func newTraceID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// newSpanID returns a 64-bit identifier rendered as 16 hex characters.
func newSpanID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

// Start begins an operation, inheriting the trace of the context's current
// span when one is active, and returns a derived context carrying the new
// span as current.
func (c *Correlator) Start(ctx context.Context, name string, attrs map[string]any) (context.Context, *Span) {
	s := &Span{
		SpanID:     newSpanID(),
		Name:       name,
		Attributes: attrs,
		StartedAt:  c.now(),
	}

	if parent := spanFromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		s.ParentSpanID = parent.SpanID
		s.parent = parent
	} else {
		s.TraceID = newTraceID()
	}

	c.mu.Lock()
	tracer := c.tracer
	c.inflight[s.SpanID] = s
	c.mu.Unlock()

	if tracer != nil {
		ctx, s.otelSpan = tracer.Start(ctx, name,
			oteltrace.WithAttributes(otelAttributes(attrs)...))
	}

	return withSpan(ctx, s), s
}

// End removes the span with the given identifier from the in-flight registry
// and returns it with its elapsed duration. The second return is false when
// the identifier is unknown or already ended; the logger reports that as a
// warning, never a failure.
func (c *Correlator) End(spanID string) (*Span, time.Duration, bool) {
	c.mu.Lock()
	s, ok := c.inflight[spanID]
	if ok {
		delete(c.inflight, spanID)
	}
	c.mu.Unlock()

	if !ok {
		return nil, 0, false
	}
	if s.otelSpan != nil {
		s.otelSpan.End()
	}
	return s, c.now().Sub(s.StartedAt), true
}

// ActiveSpans returns the number of in-flight spans. A caller that abandons
// an operation without ending it shows up here indefinitely.
func (c *Correlator) ActiveSpans() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inflight)
}

// traceContext renders the context's current span as the reserved _trace
// block, or nil when no operation is active.
func traceContext(ctx context.Context) map[string]any {
	s := spanFromContext(ctx)
	if s == nil {
		return nil
	}
	tc := map[string]any{
		"traceId":   s.TraceID,
		"spanId":    s.SpanID,
		"operation": s.Name,
	}
	if s.ParentSpanID != "" {
		tc["parentSpanId"] = s.ParentSpanID
	}
	return tc
}

// otelAttributes converts a loose attribute map to OTel attributes.
func otelAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		default:
			out = append(out, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return out
}
