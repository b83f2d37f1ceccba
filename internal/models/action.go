// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/eventsim/internal/weight"
)

// ErrInvalidAction is returned when an action fails validation.
var ErrInvalidAction = errors.New("invalid action")

// Action is an immutable, timestamped interaction of a user with an event.
// It may be delivered more than once; every consumer must be idempotent.
type Action struct {
	UserID    int64             `json:"user_id" validate:"gt=0"`
	EventID   int64             `json:"event_id" validate:"gt=0"`
	Kind      weight.ActionKind `json:"action_kind"`
	Timestamp time.Time         `json:"timestamp"`
}

// Validate checks ids and kind. Unknown kinds wrap weight.ErrUnknownActionKind.
func (a *Action) Validate() error {
	if a.UserID <= 0 {
		return fmt.Errorf("%w: user_id must be positive, got %d", ErrInvalidAction, a.UserID)
	}
	if a.EventID <= 0 {
		return fmt.Errorf("%w: event_id must be positive, got %d", ErrInvalidAction, a.EventID)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidAction, weight.ErrUnknownActionKind, uint8(a.Kind))
	}
	return nil
}

// IdempotencyKey identifies this action across redeliveries and resubmits.
// It is used as the JetStream Nats-Msg-Id.
func (a *Action) IdempotencyKey() string {
	return fmt.Sprintf("%d-%d-%s-%d", a.UserID, a.EventID, a.Kind, a.Timestamp.UnixNano())
}
