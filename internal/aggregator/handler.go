// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
	"github.com/tomtom215/eventsim/internal/models"
)

// SimilarityPublisher appends updates to the similarity-update log.
type SimilarityPublisher interface {
	PublishSimilarity(ctx context.Context, s models.Similarity) error
}

// Handler adapts an Aggregator to the batch consumer loop. Updates produced
// by a batch are held until Flush publishes them, so the loop only commits
// the action log once every update of the batch is on the similarity log.
type Handler struct {
	agg       *Aggregator
	publisher SimilarityPublisher
	snapshot  *SnapshotStore

	pending      []models.Similarity
	lastSnapshot time.Time
}

// NewHandler creates a consumer handler. snapshot may be nil.
func NewHandler(agg *Aggregator, publisher SimilarityPublisher, snapshot *SnapshotStore) (*Handler, error) {
	if agg == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("similarity publisher required")
	}
	return &Handler{
		agg:          agg,
		publisher:    publisher,
		snapshot:     snapshot,
		lastSnapshot: time.Now(),
	}, nil
}

// Name implements eventprocessor.Handler.
func (h *Handler) Name() string {
	return "aggregator"
}

// Handle decodes one action and ingests it.
func (h *Handler) Handle(_ context.Context, data []byte) error {
	action, err := eventprocessor.DecodeAction(data)
	if err != nil {
		return err
	}

	before := h.agg.State().Weight(action.EventID, action.UserID)
	updates, err := h.agg.Ingest(*action)
	if err != nil {
		return fmt.Errorf("ingest action %s: %w", action.IdempotencyKey(), err)
	}

	noop := h.agg.State().Weight(action.EventID, action.UserID) == before
	metrics.RecordAggregatorIngest(len(updates), noop)
	h.pending = append(h.pending, updates...)
	return nil
}

// Flush publishes pending updates in order. On failure the unpublished
// suffix is kept for the next attempt.
func (h *Handler) Flush(ctx context.Context) error {
	for i, update := range h.pending {
		if err := h.publisher.PublishSimilarity(ctx, update); err != nil {
			h.pending = h.pending[i:]
			return fmt.Errorf("publish similarity %s: %w", update.Key(), err)
		}
	}
	h.pending = h.pending[:0]
	return nil
}

// Pending returns the number of updates waiting to be published.
func (h *Handler) Pending() int {
	return len(h.pending)
}

// Committed implements eventprocessor.CommitObserver. It refreshes the state
// gauges and saves a snapshot when the snapshot interval has elapsed.
func (h *Handler) Committed(_ context.Context) {
	stats := h.agg.State().Stats()
	metrics.UpdateAggregatorState(stats.Events, stats.Users, stats.Pairs)

	if h.snapshot == nil || time.Since(h.lastSnapshot) < h.snapshot.Interval() {
		return
	}
	h.SaveSnapshot()
}

// SaveSnapshot persists dirty aggregator state immediately. It does nothing
// while updates are unpublished: the state already reflects their actions,
// and a snapshot would make the redelivered actions no-ops after a restart.
func (h *Handler) SaveSnapshot() {
	if h.snapshot == nil {
		return
	}
	if n := len(h.pending); n > 0 {
		logging.Warn().Int("pending", n).Msg("Aggregator snapshot skipped, similarity updates unpublished")
		return
	}
	start := time.Now()
	keys, err := h.snapshot.Save()
	metrics.RecordSnapshot(time.Since(start), keys, err)
	if err != nil {
		logging.Error().Err(err).Msg("Aggregator snapshot failed")
		return
	}
	h.lastSnapshot = time.Now()
	if keys > 0 {
		logging.Debug().Int("keys", keys).Dur("duration", time.Since(start)).Msg("Aggregator snapshot saved")
	}
}
