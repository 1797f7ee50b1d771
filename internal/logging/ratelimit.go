package logging

import (
	"sync"
	"time"
)

// Admission is the limiter's verdict for a single record.
type Admission struct {
	// Allowed reports whether the record may be emitted.
	Allowed bool

	// FirstDenial is true for the first record denied in a window. The
	// caller emits its "suppressing" notice on this edge only, so a flood
	// produces one notice rather than one per dropped record.
	FirstDenial bool

	// WindowSuppressed carries the number of records suppressed in the
	// window that just closed, reported once on the first call that
	// observes the newer window. Zero otherwise.
	WindowSuppressed int
}

// Limiter bounds emitted records per wall-clock-aligned window. Severities at
// or above SeverityCritical always pass regardless of counter state. Window
// state is discarded lazily when a call observes a newer window; there is no
// background sweep.
type Limiter struct {
	mu sync.Mutex

	enabled      bool
	window       time.Duration
	maxPerWindow int

	windowStart time.Time
	count       int
	suppressed  int

	now func() time.Time
}

// NewLimiter creates an enabled limiter. Window must be positive and
// maxPerWindow at least one; callers validate via Config.Validate.
func NewLimiter(window time.Duration, maxPerWindow int) *Limiter {
	return &Limiter{
		enabled:      true,
		window:       window,
		maxPerWindow: maxPerWindow,
		now:          time.Now,
	}
}

// SetEnabled toggles limiting. Disabling clears window state so a later
// re-enable starts from a fresh window.
func (l *Limiter) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	if !enabled {
		l.windowStart = time.Time{}
		l.count = 0
		l.suppressed = 0
	}
}

// Enabled reports whether limiting is active.
func (l *Limiter) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Admit decides whether a record at the given severity may be emitted and
// accounts for it in the current window.
func (l *Limiter) Admit(severity Severity) Admission {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || severity >= SeverityCritical {
		return Admission{Allowed: true}
	}

	now := l.now()
	windowStart := now.Truncate(l.window)

	var carried int
	if !l.windowStart.Equal(windowStart) {
		carried = l.suppressed
		l.windowStart = windowStart
		l.count = 0
		l.suppressed = 0
	}

	l.count++
	if l.count > l.maxPerWindow {
		l.suppressed++
		return Admission{
			FirstDenial:      l.suppressed == 1,
			WindowSuppressed: carried,
		}
	}
	return Admission{Allowed: true, WindowSuppressed: carried}
}

// SuppressedInWindow returns the number of records suppressed so far in the
// current window, for the statistics surface.
func (l *Limiter) SuppressedInWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}
