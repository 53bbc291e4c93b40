package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Request limits
	MaxBodyBytes int64

	// Document defaults
	DefaultFormat string
	InitialMode   string

	// Event log exposed at /api/events
	EventBufferSize int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("DOCSYNC_API_KEY"),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 10485760), // 10MB

		DefaultFormat: envOr("DEFAULT_FORMAT", ""),
		InitialMode:   envOr("INITIAL_MODE", "tree"),

		EventBufferSize: envInt("EVENT_BUFFER_SIZE", 256),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10485760
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 256
	}

	return cfg
}

func (c Config) Validate() error {
	if c.InitialMode != "tree" && c.InitialMode != "source" {
		return fmt.Errorf("INITIAL_MODE must be \"tree\" or \"source\", got %q", c.InitialMode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
