// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

// actionWire keeps the kind as a string so that unknown kinds surface as
// weight.ErrUnknownActionKind rather than an opaque JSON error.
type actionWire struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Kind      string    `json:"action_kind"`
	Timestamp time.Time `json:"timestamp"`
}

// EncodeAction serializes a valid action for the raw action log.
func EncodeAction(a *models.Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(actionWire{
		UserID:    a.UserID,
		EventID:   a.EventID,
		Kind:      a.Kind.String(),
		Timestamp: a.Timestamp.UTC(),
	})
}

// DecodeAction parses and validates a raw action log payload. Malformed JSON
// wraps ErrPoisonMessage; an unknown kind wraps weight.ErrUnknownActionKind.
func DecodeAction(data []byte) (*models.Action, error) {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode action: %w", ErrPoisonMessage, err)
	}
	kind, err := weight.ParseActionKind(w.Kind)
	if err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	a := &models.Action{
		UserID:    w.UserID,
		EventID:   w.EventID,
		Kind:      kind,
		Timestamp: w.Timestamp,
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoisonMessage, err)
	}
	return a, nil
}

// EncodeSimilarity serializes a canonical similarity update.
func EncodeSimilarity(s models.Similarity) ([]byte, error) {
	s = s.Canonical()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Timestamp = s.Timestamp.UTC()
	return json.Marshal(s)
}

// DecodeSimilarity parses a similarity update and returns it canonicalized.
func DecodeSimilarity(data []byte) (models.Similarity, error) {
	var s models.Similarity
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Similarity{}, fmt.Errorf("%w: decode similarity: %w", ErrPoisonMessage, err)
	}
	s = s.Canonical()
	if err := s.Validate(); err != nil {
		return models.Similarity{}, fmt.Errorf("%w: %w", ErrPoisonMessage, err)
	}
	return s, nil
}

// SkipReason classifies a Handle error for the skipped-messages metric.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, weight.ErrUnknownActionKind):
		return "unknown_kind"
	case errors.Is(err, ErrPoisonMessage):
		return "decode"
	default:
		return "handler"
	}
}
