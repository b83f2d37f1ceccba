// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package models defines the records that flow through the Eventsim pipeline.

Record Categories:

1. Log Records (transient, JetStream-resident):
  - Action: a user interacted with an event (VIEW, REGISTER, LIKE)
  - Similarity: an updated pairwise score emitted by the aggregator

2. Durable Records (SQL-resident):
  - Interaction: per-(user, event) maximum strength, upserted monotonically
  - Similarity: per canonical (low, high) pair, overwritten on every update

3. Query Results:
  - ScoredEvent: an event id with a ranking score

4. API Envelope:
  - APIResponse / APIError: JSON wrapper used by the HTTP side channel

Pairs are always stored canonically with EventLow < EventHigh, see CanonicalPair.
*/
package models
