package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name string
		want Severity
	}{
		{"debug", SeverityDebug},
		{"info", SeverityInfo},
		{"notice", SeverityNotice},
		{"warning", SeverityWarning},
		{"error", SeverityError},
		{"critical", SeverityCritical},
		{"alert", SeverityAlert},
		{"emergency", SeverityEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeverity(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
}

func TestParseSeverity_Invalid(t *testing.T) {
	for _, name := range []string{"", "verbose", "WARN", "Info", "fatal"} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeverity(name)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSeverity)
		})
	}
}

func TestSeverity_Ordering(t *testing.T) {
	ordered := []Severity{
		SeverityDebug, SeverityInfo, SeverityNotice, SeverityWarning,
		SeverityError, SeverityCritical, SeverityAlert, SeverityEmergency,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i])
	}
}

func TestPolicy_Threshold(t *testing.T) {
	p := NewPolicy(SeverityWarning)

	assert.False(t, p.Enabled(SeverityDebug))
	assert.False(t, p.Enabled(SeverityInfo))
	assert.False(t, p.Enabled(SeverityNotice))
	assert.True(t, p.Enabled(SeverityWarning))
	assert.True(t, p.Enabled(SeverityError))
	assert.True(t, p.Enabled(SeverityEmergency))

	p.SetThreshold(SeverityDebug)
	assert.True(t, p.Enabled(SeverityDebug))
}

func TestPolicy_SetThresholdName(t *testing.T) {
	p := NewPolicy(SeverityInfo)

	require.NoError(t, p.SetThresholdName("error"))
	assert.Equal(t, SeverityError, p.Threshold())

	err := p.SetThresholdName("loud")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSeverity)
	assert.Equal(t, SeverityError, p.Threshold(), "invalid name must not change threshold")
}

func TestSeverity_TextRoundTrip(t *testing.T) {
	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("critical")))
	assert.Equal(t, SeverityCritical, s)

	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "critical", string(text))

	assert.Error(t, s.UnmarshalText([]byte("nope")))
}
