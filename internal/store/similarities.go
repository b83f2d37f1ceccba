// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/models"
)

// UpsertSimilarities writes rows in one transaction, overwriting score and
// timestamp unconditionally. Keys are canonicalized before writing.
func (s *Store) UpsertSimilarities(ctx context.Context, rows []models.Similarity) error {
	if len(rows) == 0 {
		return nil
	}
	return s.inTx(ctx, "upsert", "similarities", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.dialect.upsertSimilarity)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range rows {
			r := rows[i].Canonical()
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
			}
			if _, err := stmt.ExecContext(ctx, r.EventLow, r.EventHigh, r.Score, r.Timestamp.UTC()); err != nil {
				return fmt.Errorf("pair %s: %w", r.Key(), err)
			}
		}
		return nil
	})
}

// GetSimilarity returns the stored row for the pair in either order, or nil.
func (s *Store) GetSimilarity(ctx context.Context, a, b int64) (*models.Similarity, error) {
	low, high := models.CanonicalPair(a, b)
	var found *models.Similarity
	err := s.query(ctx, "select", "similarities",
		`SELECT event_low, event_high, score, ts FROM similarities WHERE event_low = $1 AND event_high = $2`,
		[]any{low, high},
		func(rows *sql.Rows) error {
			sim, err := scanSimilarity(rows)
			if err != nil {
				return err
			}
			found = &sim
			return nil
		})
	return found, err
}

// SimilaritiesForEvent returns every pair touching eventID, highest score
// first.
func (s *Store) SimilaritiesForEvent(ctx context.Context, eventID int64) ([]models.Similarity, error) {
	var out []models.Similarity
	err := s.query(ctx, "select", "similarities",
		`SELECT event_low, event_high, score, ts FROM similarities
		 WHERE event_low = $1 OR event_high = $1
		 ORDER BY score DESC, event_low, event_high`,
		[]any{eventID},
		collectSimilarities(&out))
	return out, err
}

// SimilaritiesTouching returns every pair with at least one endpoint in
// eventIDs. Each pair appears once.
func (s *Store) SimilaritiesTouching(ctx context.Context, eventIDs []int64) ([]models.Similarity, error) {
	var out []models.Similarity
	seen := make(map[[2]int64]struct{})
	for _, chunk := range chunks(eventIDs, s.cfg.LookupChunk) {
		ph := placeholders(1, len(chunk))
		q := fmt.Sprintf(`SELECT event_low, event_high, score, ts FROM similarities
			WHERE event_low IN (%s) OR event_high IN (%s)`, ph, ph)

		var batch []models.Similarity
		if err := s.query(ctx, "select", "similarities", q, int64Args(chunk), collectSimilarities(&batch)); err != nil {
			return nil, err
		}
		for _, sim := range batch {
			key := [2]int64{sim.EventLow, sim.EventHigh}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, sim)
		}
	}
	return out, nil
}

func scanSimilarity(rows *sql.Rows) (models.Similarity, error) {
	var sim models.Similarity
	err := rows.Scan(&sim.EventLow, &sim.EventHigh, &sim.Score, &sim.Timestamp)
	return sim, err
}

// collectSimilarities appends scanned rows to out, skipping rows that break
// the canonical-key invariant.
func collectSimilarities(out *[]models.Similarity) func(*sql.Rows) error {
	return func(rows *sql.Rows) error {
		sim, err := scanSimilarity(rows)
		if err != nil {
			return err
		}
		if sim.EventLow >= sim.EventHigh {
			logging.Error().
				Err(ErrInternalInconsistency).
				Int64("event_low", sim.EventLow).
				Int64("event_high", sim.EventHigh).
				Msg("Skipping non-canonical similarity row")
			return nil
		}
		*out = append(*out, sim)
		return nil
	}
}
