package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":2010", cfg.Address)
	assert.Equal(t, 7*time.Second, cfg.TickInterval)
	assert.Equal(t, 5, cfg.MaxMatchesPerTick)
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Empty(t, cfg.NatsURL)
	assert.Empty(t, cfg.ConsulAddress)
	assert.Equal(t, "lareira-server", cfg.ServiceName)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LAREIRA_ADDR", ":9999")
	t.Setenv("LAREIRA_TICK_INTERVAL", "1s")
	t.Setenv("LAREIRA_MAX_MATCHES_PER_TICK", "20")
	t.Setenv("LAREIRA_NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Address)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 20, cfg.MaxMatchesPerTick)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Setenv("LAREIRA_TICK_INTERVAL", "sete segundos")
	_, err := Load()
	assert.Error(t, err)
}
