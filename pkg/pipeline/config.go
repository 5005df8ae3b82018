// Package pipeline aggregates the configuration of every acquisition
// component.
package pipeline

import (
	"os"
	"strconv"
	"time"

	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/internal/fetch"
	"github.com/contestprep/examforge/internal/generate"
	"github.com/contestprep/examforge/internal/harvest"
	"github.com/contestprep/examforge/pkg/logging"
)

// Config holds complete pipeline configuration
type Config struct {
	Logging  *logging.LogConfig `json:"logging"`
	Fetch    *fetch.Config      `json:"fetch"`
	Harvest  *harvest.Config    `json:"harvest"`
	Catalog  *catalog.Config    `json:"catalog"`
	Generate *generate.Config   `json:"generate"`
	Server   *ServerConfig      `json:"server"`
}

// ServerConfig holds control-API server settings
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns a complete default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging:  logging.DefaultLogConfig(),
		Fetch:    fetch.DefaultConfig(),
		Harvest:  harvest.DefaultConfig(),
		Catalog:  catalog.DefaultConfig(),
		Generate: generate.DefaultConfig(),
		Server: &ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// LoadFromEnv returns the default configuration with environment overrides
// applied.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.OutputFile = getEnv("LOG_FILE", cfg.Logging.OutputFile)

	cfg.Fetch.PrimaryProxy = getEnv("PRIMARY_PROXY", cfg.Fetch.PrimaryProxy)
	cfg.Fetch.FallbackProxy = getEnv("FALLBACK_PROXY", cfg.Fetch.FallbackProxy)

	if ms := getEnvInt("PACING_DELAY_MS", 0); ms > 0 {
		cfg.Harvest.PacingDelay = time.Duration(ms) * time.Millisecond
	}
	if year := getEnvInt("CATALOG_CURRENT_YEAR", 0); year > 0 {
		cfg.Catalog.CurrentYear = year
	}

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
