package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.HeartbeatInterval)
	assert.Equal(t, 20*time.Second, cfg.PollInterval)
	assert.Equal(t, 8*time.Second, cfg.CloseTimeout)
	assert.False(t, cfg.Echo)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SB_PORT", "9090")
	t.Setenv("SB_HEARTBEAT_INTERVAL", "15000")
	t.Setenv("SB_POLL_INTERVAL", "1000")
	t.Setenv("SB_CLOSE_TIMEOUT", "500")
	t.Setenv("SB_ECHO", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.CloseTimeout)
	assert.True(t, cfg.Echo)
}
