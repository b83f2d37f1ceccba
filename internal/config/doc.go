// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package config loads and validates the Eventsim configuration.

# Configuration Sources

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths
 3. Environment variables listed in the env mapping table

Environment variables that are not in the table are ignored, so unrelated
variables in the process environment never leak into the configuration.

# Sections

  - nats: embedded server, client URL, reconnect and circuit breaker settings
  - streams: the raw action log and the similarity-update log
  - consumer: one batch consumer per pipeline loop
  - database: DuckDB or PostgreSQL store
  - aggregator: optional BadgerDB snapshot of the similarity state
  - weights: action strengths (0 < view < register < like)
  - grpc: listener, query limits and admission control
  - server: HTTP side channel
  - logging
  - supervisor: restart policy of the service tree

# Example

	nats:
	  embedded: true
	  store_dir: /data/nats
	streams:
	  actions:
	    partitions: 16
	database:
	  driver: duckdb
	  path: /data/eventsim.duckdb
	weights:
	  view: 0.4
	  register: 0.8
	  like: 1.0

The same settings from the environment:

	NATS_EMBEDDED=true
	NATS_STORE_DIR=/data/nats
	ACTIONS_PARTITIONS=16
	DB_DRIVER=duckdb
	DUCKDB_PATH=/data/eventsim.duckdb
*/
package config
