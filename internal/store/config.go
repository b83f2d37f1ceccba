// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"fmt"
	"time"
)

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config selects and tunes the relational engine.
type Config struct {
	// Driver is duckdb or postgres.
	Driver string `koanf:"driver"`

	// Path is the DuckDB file, or ":memory:".
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// DSN is the PostgreSQL connection string.
	DSN string `koanf:"dsn"`

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// LookupChunk caps the number of ids bound into one IN list.
	LookupChunk int `koanf:"lookup_chunk"`
}

// DefaultConfig returns an on-disk DuckDB configuration.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverDuckDB,
		Path:            "/data/eventsim.duckdb",
		MaxMemory:       "1GB",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		LookupChunk:     500,
	}
}

// Validate checks the driver-specific settings.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverDuckDB:
		if c.Path == "" {
			return fmt.Errorf("database.path is required for duckdb")
		}
	case DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be duckdb or postgres, got %q", c.Driver)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.LookupChunk < 1 {
		return fmt.Errorf("database.lookup_chunk must be at least 1")
	}
	return nil
}
