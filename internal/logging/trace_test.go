package logging

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	traceIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	spanIDPattern  = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

func TestCorrelator_StartEnd(t *testing.T) {
	c := NewCorrelator()
	ctx := context.Background()

	ctx, span := c.Start(ctx, "fetch", map[string]any{"target": "db"})
	require.NotNil(t, span)
	assert.Regexp(t, traceIDPattern, span.TraceID)
	assert.Regexp(t, spanIDPattern, span.SpanID)
	assert.Empty(t, span.ParentSpanID)
	assert.Equal(t, 1, c.ActiveSpans())
	assert.Same(t, span, spanFromContext(ctx))

	ended, elapsed, ok := c.End(span.SpanID)
	require.True(t, ok)
	assert.Same(t, span, ended)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Equal(t, 0, c.ActiveSpans())
}

func TestCorrelator_ChildInheritsTrace(t *testing.T) {
	c := NewCorrelator()
	ctx := context.Background()

	ctx, parent := c.Start(ctx, "parent", nil)
	_, child := c.Start(ctx, "child", nil)

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestCorrelator_SiblingTracesAreIndependent(t *testing.T) {
	c := NewCorrelator()

	_, a := c.Start(context.Background(), "a", nil)
	_, b := c.Start(context.Background(), "b", nil)

	assert.NotEqual(t, a.TraceID, b.TraceID)
}

func TestCorrelator_OutOfOrderCompletion(t *testing.T) {
	c := NewCorrelator()
	ctx := context.Background()

	ctx, first := c.Start(ctx, "first", nil)
	_, second := c.Start(ctx, "second", nil)

	// Ending the parent before the child must work: spans are located by
	// identifier, not stack position.
	_, _, ok := c.End(first.SpanID)
	assert.True(t, ok)
	_, _, ok = c.End(second.SpanID)
	assert.True(t, ok)
}

func TestCorrelator_EndUnknown(t *testing.T) {
	c := NewCorrelator()

	_, _, ok := c.End("deadbeefdeadbeef")
	assert.False(t, ok)

	ctx, span := c.Start(context.Background(), "op", nil)
	_ = ctx
	_, _, ok = c.End(span.SpanID)
	require.True(t, ok)

	_, _, ok = c.End(span.SpanID)
	assert.False(t, ok, "double end reports unknown")
}

func TestCorrelator_MirrorsIntoOTelSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := NewCorrelator()
	c.SetTracer(tp.Tracer("test"))

	ctx, parent := c.Start(context.Background(), "outer", map[string]any{"target": "db"})
	_, child := c.Start(ctx, "inner", nil)
	c.End(child.SpanID)
	c.End(parent.SpanID)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "inner", ended[0].Name())
	assert.Equal(t, "outer", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID(),
		"nested operation parents onto the outer OTel span")
}

func TestTraceContext(t *testing.T) {
	c := NewCorrelator()
	ctx := context.Background()

	assert.Nil(t, traceContext(ctx))

	ctx, parent := c.Start(ctx, "outer", nil)
	ctx, child := c.Start(ctx, "inner", nil)

	tc := traceContext(ctx)
	require.NotNil(t, tc)
	assert.Equal(t, child.TraceID, tc["traceId"])
	assert.Equal(t, child.SpanID, tc["spanId"])
	assert.Equal(t, parent.SpanID, tc["parentSpanId"])
	assert.Equal(t, "inner", tc["operation"])
}
