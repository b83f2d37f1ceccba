// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package models

import "time"

// Interaction is the durable per-(user, event) record. Rating is the
// strongest action weight ever observed for the pair and never decreases.
type Interaction struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxInteractionCountIDs bounds the event list of one interaction-count query.
const MaxInteractionCountIDs = 1000

// ScoredEvent is a query result row.
type ScoredEvent struct {
	EventID int64   `json:"event_id"`
	Score   float64 `json:"score"`
}
