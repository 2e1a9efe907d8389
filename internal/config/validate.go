package config

import (
	"fmt"
	"net/url"
)

func (c *Config) validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}

	if err := c.validateCollection(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateBackend() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		return c.validateDatabase()
	default:
		return fmt.Errorf("XTDB_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Backend)
	}
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required when XTDB_BACKEND is postgres")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		sslmode := dbURL.Query().Get("sslmode")
		if sslmode == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	return nil
}

func (c *Config) validateCollection() error {
	if c.MetadataCollectionID == "" {
		return fmt.Errorf("XTDB_METADATA_COLLECTION_ID is required")
	}

	if c.ServerUserID == "" {
		return fmt.Errorf("XTDB_SERVER_USER must not be empty")
	}

	return nil
}
