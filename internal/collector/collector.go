// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

// Package collector accepts actions from the booking domain and appends
// them to the raw action log.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/validation"
	"github.com/tomtom215/eventsim/internal/weight"
)

// ActionPublisher appends an action to the raw action log.
type ActionPublisher interface {
	PublishAction(ctx context.Context, a *models.Action) error
}

// SubmitActionRequest is an action as submitted by a caller. A zero
// Timestamp means now.
type SubmitActionRequest struct {
	UserID     int64     `json:"user_id" validate:"gt=0"`
	EventID    int64     `json:"event_id" validate:"gt=0"`
	ActionKind string    `json:"action_kind" validate:"required,action_kind"`
	Timestamp  time.Time `json:"timestamp"`
}

// Collector validates and publishes submitted actions.
type Collector struct {
	publisher ActionPublisher
	now       func() time.Time
}

// New creates a Collector publishing through publisher.
func New(publisher ActionPublisher) (*Collector, error) {
	if publisher == nil {
		return nil, fmt.Errorf("action publisher required")
	}
	return &Collector{publisher: publisher, now: time.Now}, nil
}

// Submit validates req and returns once the log has acknowledged the
// action. Invalid requests wrap models.ErrInvalidAction. Resubmitting the
// same action with the same timestamp is deduplicated by the log.
func (c *Collector) Submit(ctx context.Context, req *SubmitActionRequest) (*models.Action, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidAction, verr)
	}
	kind, err := weight.ParseActionKind(req.ActionKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidAction, err)
	}

	action := &models.Action{
		UserID:    req.UserID,
		EventID:   req.EventID,
		Kind:      kind,
		Timestamp: req.Timestamp,
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = c.now()
	}
	action.Timestamp = action.Timestamp.UTC()

	if err := c.publisher.PublishAction(ctx, action); err != nil {
		return nil, fmt.Errorf("publish action %s: %w", action.IdempotencyKey(), err)
	}

	logging.CtxDebug(ctx).
		Int64("user_id", action.UserID).
		Int64("event_id", action.EventID).
		Str("kind", action.Kind.String()).
		Msg("Action accepted")
	return action, nil
}
