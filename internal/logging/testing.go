package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with an observer sink for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger capturing every record. Rate limiting is
// disabled so tests opt in explicitly.
func NewTestLogger() *TestLogger {
	cfg := NewDefaultConfig()
	cfg.Level = SeverityDebug
	cfg.RateLimit.Enabled = false
	cfg.Fields = nil
	return NewTestLoggerWithConfig(cfg)
}

// NewTestLoggerWithConfig creates an observing logger from the given config.
func NewTestLoggerWithConfig(cfg *Config) *TestLogger {
	core, observed := observer.New(SeverityDebug.zapLevel())
	return &TestLogger{
		Logger:   newLogger(cfg, core),
		observed: observed,
	}
}

// All returns all captured entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message matches exactly.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// FilterMessageSnippet returns entries whose message contains the snippet.
func (t *TestLogger) FilterMessageSnippet(snippet string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(snippet)
}

// Reset clears captured entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// Severities returns the captured severities in emission order.
func (t *TestLogger) Severities() []Severity {
	entries := t.observed.All()
	out := make([]Severity, len(entries))
	for i, e := range entries {
		out[i] = severityFromZapLevel(e.Level)
	}
	return out
}

// AssertLogged verifies a record at the severity containing the message
// substring was emitted.
func (t *TestLogger) AssertLogged(tb testing.TB, severity Severity, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if severityFromZapLevel(entry.Level) == severity && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected record at %v containing %q, got: %+v", severity, msgContains, t.observed.All())
}

// AssertNotLogged verifies no record at the severity containing the message
// substring was emitted.
func (t *TestLogger) AssertNotLogged(tb testing.TB, severity Severity, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if severityFromZapLevel(entry.Level) == severity && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected record at %v containing %q", severity, msgContains)
		}
	}
}

// Field returns the value of a field on the first entry matching the message
// substring.
func (t *TestLogger) Field(msg, key string) (any, bool) {
	for _, entry := range t.observed.FilterMessageSnippet(msg).All() {
		for _, field := range entry.Context {
			if field.Key == key {
				if field.Type == zapcore.StringType {
					return field.String, true
				}
				if field.Interface != nil {
					return field.Interface, true
				}
				return field.Integer, true
			}
		}
	}
	return nil, false
}

// AssertField verifies a field with the key and value exists on an entry
// matching the message substring.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	got, ok := t.Field(msg, key)
	if !ok {
		tb.Errorf("field %q not found on records matching %q", key, msg)
		return
	}
	if !reflect.DeepEqual(got, expected) {
		tb.Errorf("field %q = %#v, want %#v", key, got, expected)
	}
}
