// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/query"
	"github.com/tomtom215/eventsim/internal/validation"
	"github.com/tomtom215/eventsim/internal/weight"
)

const (
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeNotFound         = "NOT_FOUND"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
)

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, start time.Time, data any) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondServiceError maps a query or collector error to a status code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, weight.ErrUnknownActionKind):
		respondError(w, http.StatusBadRequest, validation.CodeValidation, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logging.CtxWarn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request timed out")
		respondError(w, http.StatusGatewayTimeout, CodeTimeout, "request timed out")
	case errors.Is(err, query.ErrStoreUnavailable),
		errors.Is(err, eventprocessor.ErrBrokerUnavailable),
		errors.Is(err, eventprocessor.ErrPublisherClosed):
		logging.CtxWarn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Dependency unavailable")
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "service temporarily unavailable")
	default:
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
