// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (storage, auth client) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Storage Backends

// Supported values for STORAGE_BACKEND.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// # Configuration Schema

// Config holds all runtime configuration for the console server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Upstream authentication service (platform REST API)
	AuthAPIURL     string        `env:"AUTH_API_URL"     envDefault:"http://localhost:8080/mock-api"`
	AuthAPITimeout time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"30s"`

	// DevAuth mounts the in-process mock authentication API under /mock-api.
	DevAuth bool `env:"DEV_AUTH" envDefault:"false"`

	// SessionSecret signs mock access tokens when DevAuth is enabled.
	SessionSecret string `env:"SESSION_SECRET"`

	// Durable client storage for persisted session fields
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"720h"`

	// Key-Value Cache (Redis), required when StorageBackend is "redis"
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"8"`

	// Relational Database (PostgreSQL), required when StorageBackend is "postgres"
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MigrationPath    string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Browser tab cookie
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"console_sid"`

	// Navigation
	RoutesFile        string `env:"ROUTES_FILE"`
	StaticDir         string `env:"STATIC_DIR"`
	DefaultSystemCode string `env:"DEFAULT_SYSTEM_CODE" envDefault:"ucenter"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis storage backend"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.DevAuth && len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes when DEV_AUTH is enabled"))
	}

	if c.DevAuth && c.IsProduction() {
		errs = append(errs, errors.New("DEV_AUTH cannot be enabled in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
