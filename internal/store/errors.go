// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package store

import (
	"errors"
	"strings"
)

var (
	// ErrConflict is a write-write conflict between concurrent
	// transactions. Upserts are keyed, so retrying the batch is safe.
	ErrConflict = errors.New("store: write conflict")

	// ErrInternalInconsistency marks stored data that violates an index
	// invariant, such as a non-canonical similarity key.
	ErrInternalInconsistency = errors.New("store: internal inconsistency")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// classify maps driver errors onto the store's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Transaction conflict"),
		strings.Contains(msg, "Conflict on update"),
		strings.Contains(msg, "SQLSTATE 40001"),
		strings.Contains(msg, "SQLSTATE 40P01"):
		return errors.Join(ErrConflict, err)
	case strings.Contains(msg, "sql: database is closed"):
		return errors.Join(ErrClosed, err)
	default:
		return err
	}
}
