package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("TRIAGE_WORKERS", "")
	t.Setenv("TRIAGE_DEFAULT_CONFIDENCE_THRESHOLD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "helpdesk-triage", cfg.App.Name)
	assert.Equal(t, 4, cfg.Triage.Workers)
	assert.True(t, cfg.Triage.DefaultAutoCloseEnabled)
	assert.InDelta(t, 0.78, cfg.Triage.DefaultConfidenceThreshold, 1e-9)
	assert.Equal(t, 24, cfg.Triage.DefaultSLAHours)
	assert.Equal(t, 10*time.Second, cfg.Triage.StageTimeout())
	assert.NotEmpty(t, cfg.Triage.ConsumerName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIAGE_WORKERS", "8")
	t.Setenv("TRIAGE_STAGE_TIMEOUT_SECONDS", "0")
	t.Setenv("TRIAGE_DEFAULT_CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("TRIAGE_USE_STREAM", "true")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Triage.Workers)
	assert.Equal(t, time.Duration(0), cfg.Triage.StageTimeout())
	assert.InDelta(t, 0.5, cfg.Triage.DefaultConfidenceThreshold, 1e-9)
	assert.True(t, cfg.Triage.UseStream)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	t.Setenv("TRIAGE_DEFAULT_CONFIDENCE_THRESHOLD", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestUnparseableValuesFallBack(t *testing.T) {
	t.Setenv("TRIAGE_QUEUE_SIZE", "lots")
	t.Setenv("TRIAGE_DEFAULT_AUTO_CLOSE_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Triage.QueueSize)
	assert.True(t, cfg.Triage.DefaultAutoCloseEnabled)
}
