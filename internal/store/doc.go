// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package store persists the two durable indexes behind the query engine.

	interactions (user_id, event_id) -> rating, ts   rating only ever rises
	similarities (event_low, event_high) -> score, ts  last write wins

Both tables are written with INSERT ... ON CONFLICT upserts, so replaying a
batch after a crash leaves them unchanged. DuckDB is the default engine; the
same schema runs on PostgreSQL through pgx's database/sql driver. Statements
use $n placeholders, which both engines accept.
*/
package store
