// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/query"
	"github.com/tomtom215/eventsim/internal/store"
	"github.com/tomtom215/eventsim/internal/weight"
)

// toStatus converts a service error to a gRPC status error. Status errors
// pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeFor(err), err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, query.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, weight.ErrUnknownActionKind):
		return codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, eventprocessor.ErrBrokerUnavailable),
		errors.Is(err, eventprocessor.ErrPublisherClosed),
		errors.Is(err, query.ErrStoreUnavailable),
		errors.Is(err, store.ErrClosed),
		errors.Is(err, store.ErrConflict):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
