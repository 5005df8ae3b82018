package gemini

import (
	"errors"
	"os"
	"time"
)

// Config configures the Gemini provider.
type Config struct {
	APIKey string `json:"-"`
	// Model is the default model; individual requests may override it.
	Model string `json:"model"`
	// MaxAttempts bounds the exponential backoff retry loop.
	MaxAttempts int `json:"max_attempts"`
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
}

// DefaultConfig returns default provider configuration
func DefaultConfig() *Config {
	return &Config{
		Model:          "gemini-2.5-flash",
		MaxAttempts:    3,
		RetryBaseDelay: time.Second,
	}
}

// NewConfigFromEnv builds configuration from the environment.
func NewConfigFromEnv() (*Config, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	cfg := DefaultConfig()
	cfg.APIKey = key
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Model = model
	}
	return cfg, nil
}
