package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WSURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.NotEmpty(t, cfg.TokenDBPath)
	assert.Greater(t, cfg.ChatSendRate, 0.0)
	assert.GreaterOrEqual(t, cfg.ChatSendBurst, 1)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://play.example.com")
	t.Setenv("WS_URL", "wss://play.example.com/ws")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "https://play.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://play.example.com/ws", cfg.WSURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfigRejectsBadURLs(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"api url without scheme", "API_BASE_URL", "localhost:8080"},
		{"api url with ws scheme", "API_BASE_URL", "ws://localhost:8080"},
		{"ws url with http scheme", "WS_URL", "http://localhost:8080/ws"},
		{"empty ws url", "WS_URL", "://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT_SECONDS", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
