package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JOB_QUEUE", "")
	t.Setenv("DEFAULT_PER_PAGE", "")

	cfg := Load()

	assert.Equal(t, "database", cfg.JobQueue)
	assert.Equal(t, 45, cfg.DefaultPerPage)
	assert.Equal(t, 24*time.Hour, cfg.TokenLifetime)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JOB_QUEUE", "nats")
	t.Setenv("NATS_EMBEDDED", "true")
	t.Setenv("WORKER_POLL_INTERVAL", "500ms")
	t.Setenv("SMTP_PORT", "2525")

	cfg := Load()

	assert.Equal(t, "nats", cfg.JobQueue)
	assert.True(t, cfg.NATSEmbedded)
	assert.Equal(t, 500*time.Millisecond, cfg.WorkerPollInterval)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEBUG", "maybe")
	t.Setenv("JOB_MAX_ATTEMPTS", "many")
	t.Setenv("STREAM_INTERVAL", "soon")

	cfg := Load()

	assert.False(t, cfg.Debug)
	assert.Equal(t, 5, cfg.JobMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.StreamInterval)
}
