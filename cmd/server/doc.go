// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package main is the entry point for the Eventsim server.

Eventsim turns a stream of user actions on events (VIEW, REGISTER, LIKE)
into event-to-event similarities and per-user recommendations.

# Data Flow

	Collector (gRPC / HTTP)
	    -> USER_ACTIONS stream (partitioned by user)
	        -> aggregator loop       -> EVENTS_SIMILARITY stream (partitioned by pair)
	        -> interaction-sink loop -> interactions table
	EVENTS_SIMILARITY stream
	    -> similarity-sink loop      -> similarities table
	interactions + similarities
	    -> Recommendation Query Engine (gRPC streams, HTTP mirrors)

Each loop commits its stream position only after its side effects are
durable, so a crash replays the uncommitted batch and the idempotent
handlers absorb the replay.

# Supervisor Tree

	RootSupervisor ("eventsim")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── consumer-aggregator
	│   ├── consumer-interaction-sink
	│   └── consumer-similarity-sink
	└── APISupervisor ("api-layer")
	    ├── grpc-server
	    └── http-server

Initialization order:

 1. Configuration: koanf defaults, config.yaml, environment
 2. Logging: zerolog
 3. Store: DuckDB (default) or PostgreSQL, schema migration
 4. NATS: embedded JetStream server or external URL, stream setup
 5. Publisher: Watermill JetStream publisher behind a circuit breaker
 6. Aggregator: in-memory state, optionally restored from a BadgerDB snapshot
 7. Consumer loops, query engine, collector
 8. gRPC and HTTP servers

# Signal Handling

SIGINT and SIGTERM cancel the root context. Consumer loops finish their
current batch, the aggregator saves its snapshot, servers drain, then the
publisher, NATS connection, store and embedded server are closed.

# Example Usage

	export DUCKDB_PATH=/data/eventsim.duckdb
	export NATS_STORE_DIR=/data/nats
	export WEIGHT_LIKE=1.0
	./eventsim

With an external broker and PostgreSQL:

	export NATS_EMBEDDED=false
	export NATS_URL=nats://nats:4222
	export DB_DRIVER=postgres
	export DATABASE_DSN=postgres://eventsim:secret@db:5432/eventsim
	./eventsim
*/
package main
