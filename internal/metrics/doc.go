// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package metrics defines the Prometheus instruments exported on /metrics.

All collectors are registered on the default registry through promauto at
package initialization. Callers never touch the collectors directly in hot
paths; they use the Record* and Update* helpers, which keep label sets
bounded:

  - consumer_*: batch consumer loops, labelled by consumer name
  - aggregator_*: incremental similarity state and snapshots
  - publish_*: appends to the action and similarity logs
  - db_*: sink and query statements against the relational store
  - query_*, rpc_*, api_*: the read path and its transports

Error labels are classified into a small fixed set by ErrorClass rather
than carrying error text.
*/
package metrics
