package logging

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Severity is the syslog-style eight-level scale used by every record.
//
// Values are chosen so that SeverityDebug and SeverityInfo line up with
// zapcore.DebugLevel and zapcore.InfoLevel; the remaining six extend the
// numeric range upward. Records are written to the sink through a raw
// zapcore.Core, never through *zap.Logger, so the values that collide with
// zap's panic/fatal levels carry none of their terminal behavior.
type Severity int8

const (
	SeverityDebug Severity = iota - 1
	SeverityInfo
	SeverityNotice
	SeverityWarning
	SeverityError
	SeverityCritical
	SeverityAlert
	SeverityEmergency
)

// ErrInvalidSeverity is returned when a severity name is not one of the
// eight recognized level names.
var ErrInvalidSeverity = fmt.Errorf("invalid severity")

var severityNames = map[Severity]string{
	SeverityDebug:     "debug",
	SeverityInfo:      "info",
	SeverityNotice:    "notice",
	SeverityWarning:   "warning",
	SeverityError:     "error",
	SeverityCritical:  "critical",
	SeverityAlert:     "alert",
	SeverityEmergency: "emergency",
}

var severityValues = map[string]Severity{
	"debug":     SeverityDebug,
	"info":      SeverityInfo,
	"notice":    SeverityNotice,
	"warning":   SeverityWarning,
	"error":     SeverityError,
	"critical":  SeverityCritical,
	"alert":     SeverityAlert,
	"emergency": SeverityEmergency,
}

// ParseSeverity parses a lowercase severity name.
// Unknown names fail with ErrInvalidSeverity rather than defaulting.
func ParseSeverity(name string) (Severity, error) {
	s, ok := severityValues[name]
	if !ok {
		return SeverityInfo, fmt.Errorf("%w: %q", ErrInvalidSeverity, name)
	}
	return s, nil
}

// String returns the lowercase name, matching the MCP logging level names.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for koanf/YAML.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// zapLevel maps the severity onto the zapcore numeric range used by the sink.
func (s Severity) zapLevel() zapcore.Level {
	return zapcore.Level(s)
}

// severityFromZapLevel is the inverse of zapLevel, used when reading
// observed entries back in tests and statistics.
func severityFromZapLevel(l zapcore.Level) Severity {
	return Severity(l)
}

// Policy holds the single process-wide minimum severity threshold.
// The threshold is read on every record and replaced atomically.
type Policy struct {
	threshold atomic.Int32
}

// NewPolicy creates a policy with the given initial threshold.
func NewPolicy(threshold Severity) *Policy {
	p := &Policy{}
	p.threshold.Store(int32(threshold))
	return p
}

// Enabled reports whether a record at the given severity passes the threshold.
func (p *Policy) Enabled(s Severity) bool {
	return int32(s) >= p.threshold.Load()
}

// Threshold returns the current minimum severity.
func (p *Policy) Threshold() Severity {
	return Severity(p.threshold.Load())
}

// SetThreshold replaces the threshold atomically.
func (p *Policy) SetThreshold(s Severity) {
	p.threshold.Store(int32(s))
}

// SetThresholdName parses and applies a severity name.
// The name is validated first; an unknown name leaves the threshold unchanged.
func (p *Policy) SetThresholdName(name string) error {
	s, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	p.SetThreshold(s)
	return nil
}
