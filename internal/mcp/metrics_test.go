package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/beacond/internal/logging"
)

func TestMetricsRecordOnGlobalProvider(t *testing.T) {
	tl := logging.NewTestLogger()
	m := NewMetrics(tl.Logger)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.IncrementActive(ctx, "echo")
		m.RecordInvocation(ctx, "echo", 5*time.Millisecond, nil)
		m.RecordInvocation(ctx, "echo", 5*time.Millisecond, assert.AnError)
		m.DecrementActive(ctx, "echo")
	})
}

func TestMetricsWithNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		m := NewMetrics(nil)
		m.RecordInvocation(context.Background(), "echo", time.Millisecond, nil)
	})
}
