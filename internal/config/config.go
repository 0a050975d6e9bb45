// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Backend selects the row store: "postgres" or "memory".
	Backend string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible), used for drafts and notifications.
	// Empty ValkeyHost keeps both in process.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Editing behaviour
	ReorderMode       string        // "splice" or "swap"
	PayloadValidation string        // "strict" or "permissive"
	DraftTTL          time.Duration // idle lifetime of an editor session
	WriteConcurrency  int           // parallel row updates per patch
	WriteLimit        int           // writes per actor per minute, 0 disables
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error for malformed values
// and for the default database password in production.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		Backend: envOrDefault("BACKEND", BackendPostgres),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "blockdesk"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "blockdesk"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		ReorderMode:       envOrDefault("REORDER_MODE", "splice"),
		PayloadValidation: envOrDefault("PAYLOAD_VALIDATION", "strict"),
	}

	var err error
	if cfg.DraftTTL, err = time.ParseDuration(envOrDefault("DRAFT_TTL", "2h")); err != nil {
		return nil, fmt.Errorf("DRAFT_TTL: %w", err)
	}
	if cfg.WriteConcurrency, err = strconv.Atoi(envOrDefault("WRITE_CONCURRENCY", "8")); err != nil {
		return nil, fmt.Errorf("WRITE_CONCURRENCY: %w", err)
	}
	if cfg.WriteLimit, err = strconv.Atoi(envOrDefault("WRITE_LIMIT", "120")); err != nil {
		return nil, fmt.Errorf("WRITE_LIMIT: %w", err)
	}

	if err := oneOf("BACKEND", cfg.Backend, BackendPostgres, BackendMemory); err != nil {
		return nil, err
	}
	if err := oneOf("REORDER_MODE", cfg.ReorderMode, "splice", "swap"); err != nil {
		return nil, err
	}
	if err := oneOf("PAYLOAD_VALIDATION", cfg.PayloadValidation, "strict", "permissive"); err != nil {
		return nil, err
	}

	if cfg.Env == "production" && cfg.Backend == BackendPostgres {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UseValkey reports whether drafts and notifications live in Valkey.
func (c *Config) UseValkey() bool {
	return c.ValkeyHost != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", key, allowed, value)
}
