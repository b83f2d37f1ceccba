// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import "errors"

var (
	// ErrBrokerUnavailable is returned when the log cannot be reached or the
	// publish circuit breaker is open. Loops retry it with backoff.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrPoisonMessage marks a payload that can never be processed.
	ErrPoisonMessage = errors.New("poison message")

	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)
