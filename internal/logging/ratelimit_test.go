package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock pins the limiter to a controllable instant.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time        { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(window time.Duration, cap int) (*Limiter, *fakeClock) {
	l := NewLimiter(window, cap)
	clock := &fakeClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

func TestLimiter_CapPerWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Second, 3)

	for i := 0; i < 3; i++ {
		adm := l.Admit(SeverityDebug)
		assert.True(t, adm.Allowed, "record %d within cap", i)
	}

	adm := l.Admit(SeverityDebug)
	assert.False(t, adm.Allowed)
	assert.True(t, adm.FirstDenial, "first overflow reports the denial edge")

	adm = l.Admit(SeverityDebug)
	assert.False(t, adm.Allowed)
	assert.False(t, adm.FirstDenial, "later overflows are silent")
	assert.Equal(t, 2, l.SuppressedInWindow())
}

func TestLimiter_CriticalBypass(t *testing.T) {
	l, _ := newTestLimiter(time.Second, 1)

	l.Admit(SeverityDebug)
	assert.False(t, l.Admit(SeverityDebug).Allowed)

	for _, s := range []Severity{SeverityCritical, SeverityAlert, SeverityEmergency} {
		assert.True(t, l.Admit(s).Allowed, "%v must bypass the limiter", s)
	}

	// Bypassed records do not consume window slots.
	assert.Equal(t, 1, l.SuppressedInWindow())
}

func TestLimiter_WindowRollReportsSuppressed(t *testing.T) {
	l, clock := newTestLimiter(time.Second, 2)

	l.Admit(SeverityInfo)
	l.Admit(SeverityInfo)
	l.Admit(SeverityInfo)
	l.Admit(SeverityInfo)
	assert.Equal(t, 2, l.SuppressedInWindow())

	clock.advance(time.Second)

	adm := l.Admit(SeverityInfo)
	assert.True(t, adm.Allowed)
	assert.Equal(t, 2, adm.WindowSuppressed, "first call in the new window carries the prior count")
	assert.Equal(t, 0, l.SuppressedInWindow())

	adm = l.Admit(SeverityInfo)
	assert.Zero(t, adm.WindowSuppressed, "the count is reported exactly once")
}

func TestLimiter_WindowAlignment(t *testing.T) {
	l, clock := newTestLimiter(time.Second, 1)
	clock.t = time.Date(2026, 1, 10, 12, 0, 0, int(900*time.Millisecond), time.UTC)

	assert.True(t, l.Admit(SeverityInfo).Allowed)
	assert.False(t, l.Admit(SeverityInfo).Allowed)

	// 100ms later the wall-clock second boundary opens a fresh window.
	clock.advance(100 * time.Millisecond)
	assert.True(t, l.Admit(SeverityInfo).Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(time.Second, 1)
	l.SetEnabled(false)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Admit(SeverityDebug).Allowed)
	}
	assert.Equal(t, 0, l.SuppressedInWindow())

	// Re-enabling starts a fresh window.
	l.SetEnabled(true)
	assert.True(t, l.Admit(SeverityDebug).Allowed)
	assert.False(t, l.Admit(SeverityDebug).Allowed)
}
