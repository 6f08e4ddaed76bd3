/*
Package configs is responsible for loading and parsing the client's configuration settings.

Settings come from environment variables, optionally seeded from a local .env
file, and cover the HTTP API origin, the realtime channel URL, the token
store location, and outbound chat rate limits.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// AppConfig contains all configuration parameters required for the client to run.
type AppConfig struct {
	// General Settings
	Environment string

	// Service Endpoints
	APIBaseURL string
	WSURL      string

	// Persistence Settings
	TokenDBPath string

	// HTTP Settings
	HTTPTimeout time.Duration

	// Outbound Chat Rate Limits
	ChatSendRate  float64
	ChatSendBurst int
}

// LoadConfig reads and parses the client configuration.
// It provides a local development default for every value and validates the
// endpoint URLs. It returns a pointer to the AppConfig struct and any error
// encountered.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env file is fine; environment variables still apply.
	_ = v.ReadInConfig()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("WS_URL", "ws://localhost:8080/ws")
	v.SetDefault("TOKEN_DB_PATH", "")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	v.SetDefault("CHAT_SEND_RATE", 2.0)
	v.SetDefault("CHAT_SEND_BURST", 5)

	cfg := &AppConfig{
		Environment:   v.GetString("ENVIRONMENT"),
		APIBaseURL:    v.GetString("API_BASE_URL"),
		WSURL:         v.GetString("WS_URL"),
		TokenDBPath:   v.GetString("TOKEN_DB_PATH"),
		HTTPTimeout:   time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		ChatSendRate:  v.GetFloat64("CHAT_SEND_RATE"),
		ChatSendBurst: v.GetInt("CHAT_SEND_BURST"),
	}

	apiURL, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (apiURL.Scheme != "http" && apiURL.Scheme != "https") || apiURL.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL %q: expected an http(s) origin", cfg.APIBaseURL)
	}

	wsURL, err := url.Parse(cfg.WSURL)
	if err != nil || (wsURL.Scheme != "ws" && wsURL.Scheme != "wss") || wsURL.Host == "" {
		return nil, fmt.Errorf("invalid WS_URL %q: expected a ws(s) endpoint", cfg.WSURL)
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: must be positive")
	}

	if cfg.ChatSendRate <= 0 || cfg.ChatSendBurst < 1 {
		return nil, fmt.Errorf("invalid chat rate limit settings: rate %v, burst %d", cfg.ChatSendRate, cfg.ChatSendBurst)
	}

	if cfg.TokenDBPath == "" {
		cfg.TokenDBPath = defaultTokenDBPath()
	}

	return cfg, nil
}

// defaultTokenDBPath places the token store under the user's configuration
// directory, falling back to the working directory when it is unavailable.
func defaultTokenDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "mimico-token.db"
	}

	return filepath.Join(configDir, "mimico", "token.db")
}
