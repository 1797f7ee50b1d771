package logging

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	// RedactedMarker replaces every value stored under a sensitive key.
	RedactedMarker = "[REDACTED]"

	// CircularMarker replaces a node that has already been visited on the
	// current walk, so cyclic payloads terminate instead of recursing.
	CircularMarker = "[CIRCULAR]"
)

// defaultSensitiveKeys is the built-in denylist, matched case-insensitively
// against map keys at any nesting depth.
var defaultSensitiveKeys = []string{
	"password",
	"apikey",
	"api_key",
	"token",
	"secret",
	"privatekey",
	"private_key",
	"credential",
	"authtoken",
	"auth_token",
	"authorization",
	"bearer",
}

// Redactor deep-scans structured payloads and replaces values stored under
// sensitive keys with RedactedMarker. Only values under matching keys are
// touched; sibling keys and non-map leaves pass through unchanged.
//
// Redaction is applied to a copy. The caller's payload is never mutated, which
// keeps emitted records independent of later changes to the input.
type Redactor struct {
	enabled atomic.Bool

	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewRedactor creates an enabled redactor with the built-in denylist plus
// any extra keys.
func NewRedactor(extraKeys ...string) *Redactor {
	r := &Redactor{keys: make(map[string]struct{}, len(defaultSensitiveKeys)+len(extraKeys))}
	for _, k := range defaultSensitiveKeys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	for _, k := range extraKeys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	r.enabled.Store(true)
	return r
}

// SetEnabled toggles redaction. When disabled, Redact is the identity.
func (r *Redactor) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Enabled reports whether redaction is active.
func (r *Redactor) Enabled() bool {
	return r.enabled.Load()
}

// sensitive reports whether a map key is on the denylist.
func (r *Redactor) sensitive(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// Redact walks the payload depth-first and returns a redacted copy.
// Maps and slices are rebuilt; scalars are returned as-is.
func (r *Redactor) Redact(v any) any {
	if !r.enabled.Load() {
		return v
	}
	return r.walk(v, make(map[uintptr]struct{}))
}

func (r *Redactor) walk(v any, visited map[uintptr]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		ptr := reflect.ValueOf(val).Pointer()
		if _, seen := visited[ptr]; seen {
			return CircularMarker
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)

		out := make(map[string]any, len(val))
		for k, item := range val {
			if r.sensitive(k) {
				out[k] = RedactedMarker
				continue
			}
			out[k] = r.walk(item, visited)
		}
		return out

	case []any:
		if val == nil {
			return val
		}
		ptr := reflect.ValueOf(val).Pointer()
		if _, seen := visited[ptr]; seen {
			return CircularMarker
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)

		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.walk(item, visited)
		}
		return out

	default:
		// Numeric, boolean, string, and opaque leaves pass through. Keys are
		// the only thing matched against the denylist.
		return v
	}
}

// RedactedString creates a field carrying only the redaction marker and the
// original value's length, for call sites that log secrets deliberately.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, RedactedMarker+":"+strconv.Itoa(len(val)))
}
