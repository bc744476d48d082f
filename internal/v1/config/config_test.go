package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvDefaults(t *testing.T) {
	cfg, err := ValidateEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultWSPath, cfg.WSPath)
	assert.Equal(t, DefaultHBCheckInterval, cfg.HBCheckInterval)
	assert.Equal(t, DefaultHBTimeLimit, cfg.HBTimeLimit)
	assert.Equal(t, DefaultReconnectionTimeLimit, cfg.ReconnectionTimeLimit)
	assert.Equal(t, DefaultMaxPlayerCount, cfg.MaxPlayerCount)
	assert.Equal(t, "production", cfg.GoEnv)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestValidateEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:9000")
	t.Setenv("WS_PATH", "/socket")
	t.Setenv("HB_CHECK_INTERVAL", "10")
	t.Setenv("HB_TIME_LIMIT", "500ms")
	t.Setenv("RECONNECTION_TIME_LIMIT", "30")
	t.Setenv("MAX_PLAYER_COUNT", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := ValidateEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/socket", cfg.WSPath)
	assert.Equal(t, 10*time.Second, cfg.HBCheckInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.HBTimeLimit)
	assert.Equal(t, 30*time.Second, cfg.ReconnectionTimeLimit)
	assert.Equal(t, 8, cfg.MaxPlayerCount)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidateEnvBadAddr(t *testing.T) {
	t.Setenv("ADDR", "not-an-addr")
	_, err := ValidateEnv()
	assert.Error(t, err)
}

func TestValidateEnvBadPort(t *testing.T) {
	t.Setenv("ADDR", "0.0.0.0:99999")
	_, err := ValidateEnv()
	assert.Error(t, err)
}

func TestValidateEnvBadDuration(t *testing.T) {
	t.Setenv("HB_TIME_LIMIT", "soon")
	_, err := ValidateEnv()
	assert.Error(t, err)
}

func TestValidateEnvBadPlayerCount(t *testing.T) {
	t.Setenv("MAX_PLAYER_COUNT", "0")
	_, err := ValidateEnv()
	assert.Error(t, err)
}

func TestValidateEnvBadPath(t *testing.T) {
	t.Setenv("WS_PATH", "ws")
	_, err := ValidateEnv()
	assert.Error(t, err)
}

func TestIsValidHostPort(t *testing.T) {
	assert.True(t, isValidHostPort("0.0.0.0:8000"))
	assert.True(t, isValidHostPort("localhost:65535"))
	assert.False(t, isValidHostPort("localhost"))
	assert.False(t, isValidHostPort(":8000"))
	assert.False(t, isValidHostPort("host:0"))
	assert.False(t, isValidHostPort("host:port"))
}
