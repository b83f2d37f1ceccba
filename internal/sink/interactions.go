// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package sink

import (
	"context"
	"fmt"

	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/metrics"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

// InteractionWriter is the store side of InteractionSink.
type InteractionWriter interface {
	UpsertInteractions(ctx context.Context, rows []models.Interaction) error
}

type interactionKey struct {
	user, event int64
}

// InteractionSink folds actions into monotonic per-(user, event) ratings.
type InteractionSink struct {
	store  InteractionWriter
	policy weight.Policy

	pending map[interactionKey]models.Interaction
	order   []interactionKey
}

// NewInteractionSink creates a sink writing to store.
func NewInteractionSink(store InteractionWriter, policy weight.Policy) (*InteractionSink, error) {
	if store == nil {
		return nil, fmt.Errorf("interaction store required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("weight policy: %w", err)
	}
	return &InteractionSink{
		store:   store,
		policy:  policy,
		pending: make(map[interactionKey]models.Interaction),
	}, nil
}

// Name implements eventprocessor.Handler.
func (s *InteractionSink) Name() string {
	return "interaction-sink"
}

// Handle decodes one action and buffers its rating.
func (s *InteractionSink) Handle(_ context.Context, data []byte) error {
	action, err := eventprocessor.DecodeAction(data)
	if err != nil {
		return err
	}
	rating, err := s.policy.Strength(action.Kind)
	if err != nil {
		return err
	}
	s.apply(models.Interaction{
		UserID:    action.UserID,
		EventID:   action.EventID,
		Rating:    rating,
		Timestamp: action.Timestamp,
	})
	return nil
}

// apply buffers row, keeping the higher rating when the key is already
// pending. Equal ratings keep the earlier row, as the store does.
func (s *InteractionSink) apply(row models.Interaction) {
	key := interactionKey{row.UserID, row.EventID}
	existing, ok := s.pending[key]
	if !ok {
		s.order = append(s.order, key)
		s.pending[key] = row
		return
	}
	if row.Rating > existing.Rating {
		s.pending[key] = row
	}
}

// Flush writes the buffered rows. On failure they stay buffered.
func (s *InteractionSink) Flush(ctx context.Context) error {
	if len(s.order) == 0 {
		return nil
	}
	rows := make([]models.Interaction, 0, len(s.order))
	for _, key := range s.order {
		rows = append(rows, s.pending[key])
	}
	if err := s.store.UpsertInteractions(ctx, rows); err != nil {
		return fmt.Errorf("upsert %d interactions: %w", len(rows), err)
	}
	metrics.RecordSinkWrite(s.Name(), len(rows))
	clear(s.pending)
	s.order = s.order[:0]
	return nil
}

// Pending returns the number of buffered rows.
func (s *InteractionSink) Pending() int {
	return len(s.order)
}
