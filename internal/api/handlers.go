// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/eventsim/internal/collector"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/validation"
)

const (
	maxBodyBytes      = 64 << 10
	defaultMaxResults = 10
)

// Queries is the read side of the API.
type Queries interface {
	Recommendations(ctx context.Context, userID int64, maxResults int) ([]models.ScoredEvent, error)
	SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]models.ScoredEvent, error)
	InteractionCounts(ctx context.Context, eventIDs []int64) ([]models.ScoredEvent, error)
}

// Submitter accepts actions.
type Submitter interface {
	Submit(ctx context.Context, req *collector.SubmitActionRequest) (*models.Action, error)
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the HTTP routes.
type Handler struct {
	queries   Queries
	submitter Submitter
	checks    []ReadinessCheck
	startTime time.Time
}

// NewHandler creates a Handler. submitter may be nil, which disables
// POST /api/v1/actions.
func NewHandler(queries Queries, submitter Submitter, checks ...ReadinessCheck) (*Handler, error) {
	if queries == nil {
		return nil, fmt.Errorf("queries required")
	}
	return &Handler{
		queries:   queries,
		submitter: submitter,
		checks:    checks,
		startTime: time.Now(),
	}, nil
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]any{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// Readyz runs every readiness check and answers 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			ready = false
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	statusCode, status := http.StatusOK, "ready"
	if !ready {
		statusCode, status = http.StatusServiceUnavailable, "not_ready"
	}
	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]any{
			"checks":         results,
			"ready_to_serve": ready,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// SubmitAction handles POST /api/v1/actions.
func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.submitter == nil {
		respondError(w, http.StatusNotImplemented, CodeUnavailable, "action collection is disabled")
		return
	}

	var req collector.SubmitActionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, validation.CodeValidation, "invalid JSON body: "+err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
		return
	}

	action, err := h.submitter.Submit(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: "success",
		Data: map[string]any{
			"accepted":        true,
			"idempotency_key": action.IdempotencyKey(),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	maxResults, ok := intQuery(w, r, "max_results", defaultMaxResults)
	if !ok {
		return
	}

	events, err := h.queries.Recommendations(r.Context(), userID, maxResults)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, start, events)
}

// SimilarEvents handles GET /api/v1/events/{eventID}/similar.
func (h *Handler) SimilarEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	maxResults, ok := intQuery(w, r, "max_results", defaultMaxResults)
	if !ok {
		return
	}
	userID, ok := idQuery(w, r, "user_id")
	if !ok {
		return
	}

	events, err := h.queries.SimilarEvents(r.Context(), eventID, userID, maxResults)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, start, events)
}

// InteractionCounts handles GET /api/v1/events/interaction-counts?ids=1,2.
func (h *Handler) InteractionCounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	raw := r.URL.Query().Get("ids")
	var ids []int64
	if raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) > models.MaxInteractionCountIDs {
			respondError(w, http.StatusBadRequest, validation.CodeValidation,
				fmt.Sprintf("ids must have at most %d elements", models.MaxInteractionCountIDs))
			return
		}
		ids = make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, validation.CodeValidation, fmt.Sprintf("ids: %q is not an integer", p))
				return
			}
			ids = append(ids, id)
		}
	}

	events, err := h.queries.InteractionCounts(r.Context(), ids)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, start, events)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.CodeValidation, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return id, true
}

// idQuery parses an optional int64 id; absent means 0.
func idQuery(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.CodeValidation, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return id, true
}

func intQuery(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.CodeValidation, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return v, true
}
