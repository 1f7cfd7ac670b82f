package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ESCALATION_SCAN_INTERVAL_SECONDS", "")
	t.Setenv("SLA_HIGH_HOURS", "")
	t.Setenv("ASSIGNMENT_LOAD_THRESHOLD", "")
	t.Setenv("LOG_ENCODING", "")
	t.Setenv("LOG_DEVELOPMENT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logger.Encoding)
	assert.False(t, cfg.Logger.Development)

	assert.Equal(t, 60*time.Second, cfg.Escalation.ScanInterval())
	assert.Equal(t, 10, cfg.Escalation.AssignmentLoadThreshold)
	assert.Equal(t, 4.0, cfg.SLA.HighHours)
	assert.Equal(t, 24.0, cfg.SLA.MediumHours)
	assert.Equal(t, 72.0, cfg.SLA.LowHours)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ESCALATION_SCAN_INTERVAL_SECONDS", "30")
	t.Setenv("SLA_URGENT_HOURS", "1.5")
	t.Setenv("ASSIGNMENT_LOAD_THRESHOLD", "5")
	t.Setenv("ESCALATION_SCAN_ENABLED", "false")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Escalation.ScanInterval())
	assert.Equal(t, 1.5, cfg.SLA.UrgentHours)
	assert.Equal(t, 90*time.Minute, Hours(cfg.SLA.UrgentHours))
	assert.Equal(t, 5, cfg.Escalation.AssignmentLoadThreshold)
	assert.False(t, cfg.Escalation.ScanEnabled)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("ESCALATION_SCAN_INTERVAL_SECONDS", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SLA_LOW_HOURS", "seventy-two")
	t.Setenv("ESCALATION_SCAN_CONCURRENCY", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 72.0, cfg.SLA.LowHours)
	assert.Equal(t, 4, cfg.Escalation.ScanConcurrency)
}
