// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"fmt"
	"strings"
)

// dialect holds the statements that differ between engines.
type dialect struct {
	sqlDriver         string
	schema            []string
	upsertInteraction string
	upsertSimilarity  string
}

var duckdbDialect = dialect{
	sqlDriver: "duckdb",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			user_id  BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			rating   DOUBLE NOT NULL,
			ts       TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS similarities (
			event_low  BIGINT NOT NULL,
			event_high BIGINT NOT NULL,
			score      DOUBLE NOT NULL,
			ts         TIMESTAMP NOT NULL,
			PRIMARY KEY (event_low, event_high),
			CHECK (event_low < event_high)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_event ON interactions (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_high ON similarities (event_high)`,
	},
	upsertInteraction: `INSERT INTO interactions (user_id, event_id, rating, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET rating = EXCLUDED.rating, ts = EXCLUDED.ts
		WHERE EXCLUDED.rating > rating`,
	upsertSimilarity: `INSERT INTO similarities (event_low, event_high, score, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_low, event_high) DO UPDATE
		SET score = EXCLUDED.score, ts = EXCLUDED.ts`,
}

var postgresDialect = dialect{
	sqlDriver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			user_id  BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			rating   DOUBLE PRECISION NOT NULL,
			ts       TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS similarities (
			event_low  BIGINT NOT NULL,
			event_high BIGINT NOT NULL,
			score      DOUBLE PRECISION NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (event_low, event_high),
			CHECK (event_low < event_high)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_event ON interactions (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_high ON similarities (event_high)`,
	},
	upsertInteraction: `INSERT INTO interactions (user_id, event_id, rating, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET rating = EXCLUDED.rating, ts = EXCLUDED.ts
		WHERE EXCLUDED.rating > interactions.rating`,
	upsertSimilarity: `INSERT INTO similarities (event_low, event_high, score, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_low, event_high) DO UPDATE
		SET score = EXCLUDED.score, ts = EXCLUDED.ts`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverDuckDB:
		return duckdbDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// placeholders returns "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}
