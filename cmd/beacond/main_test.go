package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beacond/internal/config"
	"github.com/fyrsmithlabs/beacond/internal/logging"
)

func TestBuildLoggingConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Name = "beacond-test"
	cfg.Logging.Level = "warning"
	cfg.Logging.Format = "console"
	cfg.Logging.Redaction.Keys = []string{"session_key"}
	cfg.Logging.RateLimit.Window = 2 * time.Second
	cfg.Logging.Notifier.Floor = "error"

	logCfg, err := buildLoggingConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, logging.SeverityWarning, logCfg.Level)
	assert.Equal(t, "console", logCfg.Format)
	assert.Equal(t, map[string]string{"service": "beacond-test"}, logCfg.Fields)
	assert.Equal(t, []string{"session_key"}, logCfg.Redaction.Keys)
	assert.Equal(t, 2*time.Second, logCfg.RateLimit.Window)
	assert.Equal(t, logging.SeverityError, logCfg.Notifier.Floor)
	assert.NoError(t, logCfg.Validate())
}

func TestBuildLoggingConfigRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "chatty"

	_, err := buildLoggingConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging level")
}

func TestBuildLoggingConfigRejectsBadFloor(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Notifier.Floor = "loudest"

	_, err := buildLoggingConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid notifier floor")
}
