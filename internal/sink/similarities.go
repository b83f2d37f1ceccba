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
)

// SimilarityWriter is the store side of SimilaritySink.
type SimilarityWriter interface {
	UpsertSimilarities(ctx context.Context, rows []models.Similarity) error
}

// SimilaritySink stores the latest score for each canonical pair. Scores
// can go down; the aggregator's value always wins.
type SimilaritySink struct {
	store SimilarityWriter

	pending map[[2]int64]models.Similarity
	order   [][2]int64
}

// NewSimilaritySink creates a sink writing to store.
func NewSimilaritySink(store SimilarityWriter) (*SimilaritySink, error) {
	if store == nil {
		return nil, fmt.Errorf("similarity store required")
	}
	return &SimilaritySink{
		store:   store,
		pending: make(map[[2]int64]models.Similarity),
	}, nil
}

// Name implements eventprocessor.Handler.
func (s *SimilaritySink) Name() string {
	return "similarity-sink"
}

// Handle decodes one update and buffers it.
func (s *SimilaritySink) Handle(_ context.Context, data []byte) error {
	update, err := eventprocessor.DecodeSimilarity(data)
	if err != nil {
		return err
	}
	s.apply(update)
	return nil
}

// apply buffers update under its canonical key. Later updates replace
// earlier ones in delivery order.
func (s *SimilaritySink) apply(update models.Similarity) {
	update = update.Canonical()
	key := [2]int64{update.EventLow, update.EventHigh}
	if _, ok := s.pending[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pending[key] = update
}

// Flush writes the buffered updates. On failure they stay buffered.
func (s *SimilaritySink) Flush(ctx context.Context) error {
	if len(s.order) == 0 {
		return nil
	}
	rows := make([]models.Similarity, 0, len(s.order))
	for _, key := range s.order {
		rows = append(rows, s.pending[key])
	}
	if err := s.store.UpsertSimilarities(ctx, rows); err != nil {
		return fmt.Errorf("upsert %d similarities: %w", len(rows), err)
	}
	metrics.RecordSinkWrite(s.Name(), len(rows))
	clear(s.pending)
	s.order = s.order[:0]
	return nil
}

// Pending returns the number of buffered updates.
func (s *SimilaritySink) Pending() int {
	return len(s.order)
}
