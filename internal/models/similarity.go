// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package models

import (
	"fmt"
	"time"
)

// CanonicalPair orders two event ids so that low < high.
func CanonicalPair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Similarity is the score of an unordered event pair.
// The same shape is used for the similarity-update log and the durable index.
type Similarity struct {
	EventLow  int64     `json:"event_low"`
	EventHigh int64     `json:"event_high"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSimilarity builds a canonical Similarity for the pair (a, b).
func NewSimilarity(a, b int64, score float64, ts time.Time) Similarity {
	low, high := CanonicalPair(a, b)
	return Similarity{EventLow: low, EventHigh: high, Score: score, Timestamp: ts}
}

// Canonical returns a copy with EventLow < EventHigh.
func (s Similarity) Canonical() Similarity {
	s.EventLow, s.EventHigh = CanonicalPair(s.EventLow, s.EventHigh)
	return s
}

// Key is the partition key of the pair, "low-high".
func (s Similarity) Key() string {
	low, high := CanonicalPair(s.EventLow, s.EventHigh)
	return fmt.Sprintf("%d-%d", low, high)
}

// Other returns the endpoint that is not eventID, and whether eventID is
// an endpoint at all.
func (s Similarity) Other(eventID int64) (int64, bool) {
	switch eventID {
	case s.EventLow:
		return s.EventHigh, true
	case s.EventHigh:
		return s.EventLow, true
	default:
		return 0, false
	}
}

// Validate rejects self-pairs and non-positive ids.
func (s Similarity) Validate() error {
	if s.EventLow <= 0 || s.EventHigh <= 0 {
		return fmt.Errorf("similarity event ids must be positive, got %d and %d", s.EventLow, s.EventHigh)
	}
	if s.EventLow == s.EventHigh {
		return fmt.Errorf("similarity pair must reference two distinct events, got %d twice", s.EventLow)
	}
	return nil
}
