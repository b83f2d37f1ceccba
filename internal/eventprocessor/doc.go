// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package eventprocessor carries actions and similarity updates over NATS
JetStream.

Two streams make up the pipeline:

	USER_ACTIONS       user-actions.<partition>       raw actions from the collector
	EVENTS_SIMILARITY  events-similarity.<partition>  updates from the aggregator

Actions are partitioned by event ID and similarity updates by their canonical
"low-high" key, so every update for one key lands on one subject and keeps
its relative order.

# Publishing

Publisher wraps a Watermill NATS publisher behind a gobreaker circuit
breaker. Each message carries its idempotency key as Nats-Msg-Id, so a
retried publish inside the stream's duplicate window is stored once.

# Consuming

BatchConsumer runs one pull-consumer loop for a durable consumer with
AckAllPolicy:

	fetch up to BatchSize messages (bounded by FetchMaxWait)
	Handle each message in delivery order
	Flush the handler's buffered side effects
	DoubleAck the last message of the batch, committing all of it

Handle errors are poison: the message is logged and counted, and the loop
continues. It is never acknowledged on its own, since under AckAll that would
commit the handled messages before it ahead of the flush; the batch commit
covers it instead. Flush errors are retried with
exponential backoff; the batch is never acknowledged ahead of its side
effects. On shutdown the loop stops fetching, flushes and commits what it has,
and exits.

# Embedded server

EmbeddedServer runs a JetStream-enabled nats-server inside the process for
single-binary deployments and tests.
*/
package eventprocessor
