package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the call orchestration backend.
type Config struct {
	Call    CallConfig
	Caller  CallerConfig
	Store   StoreConfig
	Session SessionConfig
}

type CallConfig struct {
	APIKey   string
	Endpoint string
	Language string
}

type CallerConfig struct {
	ProfileID   string
	DisplayName string
}

type StoreConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type SessionConfig struct {
	EventBuffer int
}

// Load resolves configuration from a local .env file (when present) and
// environment variables with sensible defaults.
func Load() (Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := Config{
		Call: CallConfig{
			APIKey:   strings.TrimSpace(os.Getenv("CAPCALL_API_KEY")),
			Endpoint: envOrDefault("CAPCALL_ENDPOINT", "https://call.capcall.app"),
			Language: envOrDefault("CAPCALL_LANGUAGE", "en"),
		},
		Caller: CallerConfig{
			ProfileID:   strings.TrimSpace(os.Getenv("CAPCALL_CALLER_ID")),
			DisplayName: envOrDefault("CAPCALL_CALLER_NAME", "caller"),
		},
		Store: StoreConfig{
			BaseURL: strings.TrimSpace(os.Getenv("CAPCALL_STORE_URL")),
			APIKey:  strings.TrimSpace(os.Getenv("CAPCALL_STORE_KEY")),
			Timeout: time.Duration(envOrDefaultInt("CAPCALL_STORE_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		Session: SessionConfig{
			EventBuffer: envOrDefaultInt("CAPCALL_EVENT_BUFFER", 64),
		},
	}

	if cfg.Store.BaseURL == "" {
		return Config{}, errors.New("CAPCALL_STORE_URL is required")
	}
	if cfg.Store.APIKey == "" {
		return Config{}, errors.New("CAPCALL_STORE_KEY is required")
	}
	if cfg.Session.EventBuffer <= 0 {
		cfg.Session.EventBuffer = 64
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = 10 * time.Second
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
