// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import "github.com/tomtom215/eventsim/internal/collector"

// RecommendationsRequest asks for events to recommend to a user.
type RecommendationsRequest struct {
	UserID     int64 `json:"user_id"`
	MaxResults int   `json:"max_results"`
}

// SimilarEventsRequest asks for the neighbours of an event. When UserID is
// set, events that user already interacted with are left out.
type SimilarEventsRequest struct {
	EventID    int64  `json:"event_id"`
	UserID     *int64 `json:"user_id,omitempty"`
	MaxResults int    `json:"max_results"`
}

// InteractionCountsRequest asks for the rating sums of events.
type InteractionCountsRequest struct {
	EventIDs []int64 `json:"event_ids"`
}

// SubmitActionRequest is the Collector input.
type SubmitActionRequest = collector.SubmitActionRequest

// SubmitActionResponse acknowledges an action appended to the log.
type SubmitActionResponse struct {
	Accepted       bool   `json:"accepted"`
	IdempotencyKey string `json:"idempotency_key"`
}
