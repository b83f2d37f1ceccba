// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/eventsim/config.yaml",
	"/etc/eventsim/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// the environment, in that order of increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DUCKDB_PATH -> database.path, WEIGHT_LIKE -> weights.like
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// entry of DefaultConfigPaths, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// NATS
	"nats_embedded":             "nats.embedded",
	"nats_url":                  "nats.url",
	"nats_server_name":          "nats.server_name",
	"nats_host":                 "nats.host",
	"nats_port":                 "nats.port",
	"nats_store_dir":            "nats.store_dir",
	"nats_max_memory":           "nats.max_memory",
	"nats_max_store":            "nats.max_store",
	"nats_max_payload":          "nats.max_payload",
	"nats_max_reconnects":       "nats.max_reconnects",
	"nats_reconnect_wait":       "nats.reconnect_wait",
	"nats_breaker_timeout":      "nats.breaker_timeout",
	"nats_breaker_failures":     "nats.breaker_failures",
	"nats_breaker_max_requests": "nats.breaker_max_requests",

	// Streams
	"actions_stream":                  "streams.actions.name",
	"actions_subject_prefix":          "streams.actions.subject_prefix",
	"actions_partitions":              "streams.actions.partitions",
	"actions_max_age":                 "streams.actions.max_age",
	"actions_duplicate_window":        "streams.actions.duplicate_window",
	"actions_storage":                 "streams.actions.storage",
	"similarities_stream":             "streams.similarities.name",
	"similarities_subject_prefix":     "streams.similarities.subject_prefix",
	"similarities_partitions":         "streams.similarities.partitions",
	"similarities_max_age":            "streams.similarities.max_age",
	"similarities_duplicate_window":   "streams.similarities.duplicate_window",
	"similarities_storage":            "streams.similarities.storage",
	"aggregator_batch_size":           "consumer.aggregator.batch_size",
	"aggregator_fetch_max_wait":       "consumer.aggregator.fetch_max_wait",
	"aggregator_max_deliver":          "consumer.aggregator.max_deliver",
	"interaction_sink_batch_size":     "consumer.interactions.batch_size",
	"interaction_sink_fetch_max_wait": "consumer.interactions.fetch_max_wait",
	"interaction_sink_max_deliver":    "consumer.interactions.max_deliver",
	"similarity_sink_batch_size":      "consumer.similarities.batch_size",
	"similarity_sink_fetch_max_wait":  "consumer.similarities.fetch_max_wait",
	"similarity_sink_max_deliver":     "consumer.similarities.max_deliver",

	// Database
	"db_driver":            "database.driver",
	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"database_dsn":         "database.dsn",
	"db_max_open_conns":    "database.max_open_conns",
	"db_max_idle_conns":    "database.max_idle_conns",
	"db_conn_max_lifetime": "database.conn_max_lifetime",

	// Aggregator snapshot
	"snapshot_enabled":  "aggregator.snapshot_enabled",
	"snapshot_path":     "aggregator.snapshot_path",
	"snapshot_interval": "aggregator.snapshot_interval",

	// Weights
	"weight_view":     "weights.view",
	"weight_register": "weights.register",
	"weight_like":     "weights.like",

	// gRPC
	"grpc_addr":             "grpc.addr",
	"grpc_rate_limit":       "grpc.rate_limit",
	"grpc_rate_burst":       "grpc.rate_burst",
	"grpc_shutdown_timeout": "grpc.shutdown_timeout",
	"query_timeout":         "grpc.query_timeout",
	"max_results_cap":       "grpc.max_results_cap",

	// HTTP
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Logging
	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"log_caller":    "logging.caller",
	"log_timestamp": "logging.timestamp",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - NATS_URL -> nats.url
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
