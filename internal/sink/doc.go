// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package sink persists the two logs into the relational store.

InteractionSink consumes the raw action log and keeps, per (user, event),
the strength of the strongest action seen. SimilaritySink consumes the
similarity-update log and stores the latest score per canonical pair.

Both implement eventprocessor.Handler. Handle only buffers; Flush writes the
buffered rows in one transaction, and the consumer loop acknowledges the
batch after Flush returns. A crash between the write and the ack replays the
batch, which is harmless because both upserts are idempotent:

	ON CONFLICT (user_id, event_id) DO UPDATE ... WHERE EXCLUDED.rating > rating
	ON CONFLICT (event_low, event_high) DO UPDATE SET score = EXCLUDED.score

Rows for the same key within one batch are collapsed before writing, so a
single statement never touches a row twice.
*/
package sink
