// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
)

// Store is the durable interaction and similarity index.
type Store struct {
	db      *sql.DB
	cfg     Config
	dialect dialect
	closed  atomic.Bool
}

// Open connects to the configured engine and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := dataSourceName(&cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, cfg: cfg, dialect: d}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("driver", cfg.Driver).Msg("Store opened")
	return s, nil
}

func dataSourceName(cfg *Config) (string, error) {
	if cfg.Driver == DriverPostgres {
		return cfg.DSN, nil
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return "", fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	dsn := fmt.Sprintf("%s?threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false", cfg.Path, threads)
	if cfg.MaxMemory != "" {
		dsn += "&max_memory=" + cfg.MaxMemory
	}
	return dsn, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			metrics.RecordDBQuery("migrate", "schema", time.Since(start), err)
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	metrics.RecordDBQuery("migrate", "schema", time.Since(start), nil)
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.cfg.Driver, classify(err))
	}
	return nil
}

// Driver returns the configured engine name.
func (s *Store) Driver() string {
	return s.cfg.Driver
}

// Close closes the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// inTx runs fn in a transaction and records the statement metrics.
func (s *Store) inTx(ctx context.Context, op, table string, fn func(*sql.Tx) error) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery(op, table, time.Since(start), err)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s %s: %w", op, table, classify(err))
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s %s: %w", op, table, classify(err))
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", op, table, classify(err))
	}
	return nil
}

// query runs a read and records the statement metrics.
func (s *Store) query(ctx context.Context, op, table, q string, args []any, scan func(*sql.Rows) error) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery(op, table, time.Since(start), err)
	}()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, table, classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("%s %s: %w", op, table, classify(err))
	}
	return nil
}

// chunks splits ids into slices of at most size elements.
func chunks(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
