// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
	"github.com/tomtom215/eventsim/internal/models"
)

var (
	// ErrInvalidArgument marks malformed query input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable wraps failed reads from the durable store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Reader is the slice of the store the engine reads from.
type Reader interface {
	InteractionsByUser(ctx context.Context, userID int64) ([]models.Interaction, error)
	InteractionSums(ctx context.Context, eventIDs []int64) (map[int64]float64, error)
	SimilaritiesForEvent(ctx context.Context, eventID int64) ([]models.Similarity, error)
	SimilaritiesTouching(ctx context.Context, eventIDs []int64) ([]models.Similarity, error)
}

// Config bounds query work.
type Config struct {
	// Timeout applies to each call.
	Timeout time.Duration `koanf:"query_timeout"`
	// MaxResultsCap clamps the requested maxResults.
	MaxResultsCap int `koanf:"max_results_cap"`
}

// DefaultConfig returns a 2s timeout and a cap of 1000 results.
func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Second,
		MaxResultsCap: 1000,
	}
}

// Validate checks the bounds.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	if c.MaxResultsCap < 1 {
		return fmt.Errorf("max results cap must be at least 1")
	}
	return nil
}

// Engine is safe for concurrent use; it holds no mutable state.
type Engine struct {
	reader Reader
	cfg    Config
}

// NewEngine creates an engine reading from reader.
func NewEngine(reader Reader, cfg Config) (*Engine, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{reader: reader, cfg: cfg}, nil
}

// Recommendations returns up to maxResults events the user has not
// interacted with, best first.
func (e *Engine) Recommendations(ctx context.Context, userID int64, maxResults int) (out []models.ScoredEvent, err error) {
	start := time.Now()
	defer func() { e.record(ctx, "recommendations", start, len(out), err) }()

	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id must be positive, got %d", ErrInvalidArgument, userID)
	}
	limit, err := e.limit(maxResults)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	interactions, err := e.reader.InteractionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load interactions for user %d: %w", ErrStoreUnavailable, userID, err)
	}
	if len(interactions) == 0 {
		return []models.ScoredEvent{}, nil
	}

	ratings := make(map[int64]float64, len(interactions))
	known := make([]int64, 0, len(interactions))
	for _, in := range interactions {
		if _, dup := ratings[in.EventID]; !dup {
			known = append(known, in.EventID)
		}
		ratings[in.EventID] = in.Rating
	}

	sims, err := e.reader.SimilaritiesTouching(ctx, known)
	if err != nil {
		return nil, fmt.Errorf("%w: load similarities for user %d: %w", ErrStoreUnavailable, userID, err)
	}

	scores := make(map[int64]float64)
	for _, sim := range sims {
		lowRating, lowKnown := ratings[sim.EventLow]
		highRating, highKnown := ratings[sim.EventHigh]
		var candidate int64
		var rating float64
		switch {
		case lowKnown && !highKnown:
			candidate, rating = sim.EventHigh, lowRating
		case highKnown && !lowKnown:
			candidate, rating = sim.EventLow, highRating
		default:
			continue
		}
		score := rating * sim.Score
		if current, ok := scores[candidate]; !ok || score > current {
			scores[candidate] = score
		}
	}

	return truncate(rank(scores), limit), nil
}

// SimilarEvents returns up to maxResults neighbours of eventID by
// descending similarity. When userID is positive, events the user already
// interacted with are excluded before truncation.
func (e *Engine) SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) (out []models.ScoredEvent, err error) {
	start := time.Now()
	defer func() { e.record(ctx, "similar_events", start, len(out), err) }()

	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event_id must be positive, got %d", ErrInvalidArgument, eventID)
	}
	if userID < 0 {
		return nil, fmt.Errorf("%w: user_id must not be negative, got %d", ErrInvalidArgument, userID)
	}
	limit, err := e.limit(maxResults)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	exclude := map[int64]struct{}{eventID: {}}
	if userID > 0 {
		interactions, err := e.reader.InteractionsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: load interactions for user %d: %w", ErrStoreUnavailable, userID, err)
		}
		for _, in := range interactions {
			exclude[in.EventID] = struct{}{}
		}
	}

	sims, err := e.reader.SimilaritiesForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: load similarities for event %d: %w", ErrStoreUnavailable, eventID, err)
	}

	out = make([]models.ScoredEvent, 0, len(sims))
	for _, sim := range sims {
		other, ok := sim.Other(eventID)
		if !ok {
			continue
		}
		if _, skip := exclude[other]; skip {
			continue
		}
		out = append(out, models.ScoredEvent{EventID: other, Score: sim.Score})
	}
	sortScored(out)
	return truncate(out, limit), nil
}

// InteractionCounts returns the rating sum of each requested event, highest
// first. Duplicate ids count once; events without interactions score 0.
func (e *Engine) InteractionCounts(ctx context.Context, eventIDs []int64) (out []models.ScoredEvent, err error) {
	start := time.Now()
	defer func() { e.record(ctx, "interaction_counts", start, len(out), err) }()

	if len(eventIDs) == 0 {
		return []models.ScoredEvent{}, nil
	}
	ids := make([]int64, 0, len(eventIDs))
	seen := make(map[int64]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: event_id must be positive, got %d", ErrInvalidArgument, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	sums, err := e.reader.InteractionSums(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: sum interactions: %w", ErrStoreUnavailable, err)
	}

	out = make([]models.ScoredEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ScoredEvent{EventID: id, Score: sums[id]})
	}
	sortScored(out)
	return out, nil
}

func (e *Engine) limit(maxResults int) (int, error) {
	if maxResults <= 0 {
		return 0, fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidArgument, maxResults)
	}
	return min(maxResults, e.cfg.MaxResultsCap), nil
}

func (e *Engine) record(ctx context.Context, op string, start time.Time, results int, err error) {
	elapsed := time.Since(start)
	metrics.RecordQuery(op, elapsed, results, err)
	if err != nil && !errors.Is(err, ErrInvalidArgument) {
		logging.CtxErr(ctx, err).Str("operation", op).Dur("duration", elapsed).Msg("Query failed")
		return
	}
	logging.CtxDebug(ctx).Str("operation", op).Int("results", results).Dur("duration", elapsed).Msg("Query served")
}

func rank(scores map[int64]float64) []models.ScoredEvent {
	out := make([]models.ScoredEvent, 0, len(scores))
	for id, score := range scores {
		out = append(out, models.ScoredEvent{EventID: id, Score: score})
	}
	sortScored(out)
	return out
}

// sortScored orders by descending score. Ties fall back to ascending id so
// responses are reproducible.
func sortScored(events []models.ScoredEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Score != events[j].Score {
			return events[i].Score > events[j].Score
		}
		return events[i].EventID < events[j].EventID
	})
}

func truncate(events []models.ScoredEvent, limit int) []models.ScoredEvent {
	if len(events) > limit {
		return events[:limit]
	}
	return events
}
