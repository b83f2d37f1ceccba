// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package query answers the three read operations served to the booking
domain, computed from the durable interaction and similarity tables:

  - Recommendations: events similar to what a user interacted with, scored
    by rating(known event) * similarity and keeping the best score per
    candidate.
  - SimilarEvents: the neighbours of one event by descending similarity,
    optionally excluding events a user already interacted with.
  - InteractionCounts: the sum of per-user ratings for each requested event.

Unknown users and events produce empty results or zero counts, never an
error. Only malformed input (non-positive ids or maxResults) fails, with
ErrInvalidArgument. Every call runs under Config.Timeout, separate from
the ingestion timeouts.
*/
package query
