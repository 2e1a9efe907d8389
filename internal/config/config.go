// Package config provides environment-driven configuration for the connector.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all connector configuration values.
type Config struct {
	Backend              string
	DatabaseURL          Secret
	MetadataCollectionID string
	ServerUserID         string
	LogLevel             string
	DefaultPageSize      int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Backend:              envOrDefault("XTDB_BACKEND", BackendMemory),
		DatabaseURL:          Secret(envOrDefault("DATABASE_URL", "")),
		MetadataCollectionID: envOrDefault("XTDB_METADATA_COLLECTION_ID", ""),
		ServerUserID:         envOrDefault("XTDB_SERVER_USER", "xtdbconnector"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
	}

	pageSize, err := strconv.Atoi(envOrDefault("XTDB_DEFAULT_PAGE_SIZE", "200"))
	if err != nil || pageSize < 1 || pageSize > 10000 {
		return nil, fmt.Errorf("XTDB_DEFAULT_PAGE_SIZE must be an integer between 1 and 10000")
	}
	cfg.DefaultPageSize = pageSize

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
