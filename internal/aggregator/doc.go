// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package aggregator maintains incremental pairwise event similarity.

For every event e the aggregator tracks each user's strongest weight w(u,e)
and the sum S(e) of those weights. For every pair of events sharing a user it
tracks M(e1,e2), the sum over shared users of min(w(u,e1), w(u,e2)). The score
of a pair is

	M(e1,e2) / sqrt(S(e1) * S(e2))

and is only defined when both sums are positive.

# Incremental Update

Ingesting an action raises w(u,e) from old to new (or does nothing when
new <= old). S(e) grows by new-old. For each other event e2 the user touched,
M(e,e2) grows by min(new,w2) - min(old,w2) and the pair score is recomputed and
emitted. Nothing is ever recomputed from scratch and nothing is ever evicted.

# State

State lives behind StateStore. MemoryStore is a plain map implementation used
in tests and by default. SnapshotStore wraps it and persists dirty keys to
BadgerDB after committed batches, so a restarted aggregator can resume warm.
Without a snapshot the state starts empty after a restart and under-counts
until it warms back up.

# Concurrency

An Aggregator is driven by exactly one consumer loop and is not safe for
concurrent use. Scaling out requires partitioning the action log by event or
user key.
*/
package aggregator
