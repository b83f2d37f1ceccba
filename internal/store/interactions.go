// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/eventsim/internal/models"
)

// UpsertInteractions writes rows in one transaction. A row only replaces a
// stored one when its rating is strictly higher, so replays and weaker
// out-of-order actions are no-ops.
func (s *Store) UpsertInteractions(ctx context.Context, rows []models.Interaction) error {
	if len(rows) == 0 {
		return nil
	}
	return s.inTx(ctx, "upsert", "interactions", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.dialect.upsertInteraction)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range rows {
			r := &rows[i]
			if _, err := stmt.ExecContext(ctx, r.UserID, r.EventID, r.Rating, r.Timestamp.UTC()); err != nil {
				return fmt.Errorf("user %d event %d: %w", r.UserID, r.EventID, err)
			}
		}
		return nil
	})
}

// GetInteraction returns the stored row for (userID, eventID), or nil.
func (s *Store) GetInteraction(ctx context.Context, userID, eventID int64) (*models.Interaction, error) {
	var found *models.Interaction
	err := s.query(ctx, "select", "interactions",
		`SELECT user_id, event_id, rating, ts FROM interactions WHERE user_id = $1 AND event_id = $2`,
		[]any{userID, eventID},
		func(rows *sql.Rows) error {
			var in models.Interaction
			if err := rows.Scan(&in.UserID, &in.EventID, &in.Rating, &in.Timestamp); err != nil {
				return err
			}
			found = &in
			return nil
		})
	return found, err
}

// InteractionsByUser returns a user's rows, most recent first.
func (s *Store) InteractionsByUser(ctx context.Context, userID int64) ([]models.Interaction, error) {
	var out []models.Interaction
	err := s.query(ctx, "select", "interactions",
		`SELECT user_id, event_id, rating, ts FROM interactions
		 WHERE user_id = $1
		 ORDER BY ts DESC, event_id`,
		[]any{userID},
		func(rows *sql.Rows) error {
			var in models.Interaction
			if err := rows.Scan(&in.UserID, &in.EventID, &in.Rating, &in.Timestamp); err != nil {
				return err
			}
			out = append(out, in)
			return nil
		})
	return out, err
}

// InteractionSums returns the sum of ratings per event for the requested
// ids. Events without interactions are absent from the map.
func (s *Store) InteractionSums(ctx context.Context, eventIDs []int64) (map[int64]float64, error) {
	sums := make(map[int64]float64, len(eventIDs))
	for _, chunk := range chunks(eventIDs, s.cfg.LookupChunk) {
		q := fmt.Sprintf(`SELECT event_id, SUM(rating) FROM interactions
			WHERE event_id IN (%s)
			GROUP BY event_id`, placeholders(1, len(chunk)))
		err := s.query(ctx, "sum", "interactions", q, int64Args(chunk), func(rows *sql.Rows) error {
			var id int64
			var sum float64
			if err := rows.Scan(&id, &sum); err != nil {
				return err
			}
			sums[id] = sum
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return sums, nil
}
