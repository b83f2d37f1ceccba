// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/eventsim/internal/collector"
	"github.com/tomtom215/eventsim/internal/models"
)

// Config configures the gRPC listener.
type Config struct {
	Addr string `koanf:"addr"`
	// RateLimit is the sustained requests per second across all methods.
	// Zero disables limiting.
	RateLimit            float64       `koanf:"rate_limit"`
	RateBurst            int           `koanf:"rate_burst"`
	MaxConcurrentStreams uint32        `koanf:"max_concurrent_streams"`
	ShutdownTimeout      time.Duration `koanf:"shutdown_timeout"`
}

// DefaultConfig listens on :9090 with 500 req/s.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":9090",
		RateLimit:            500,
		RateBurst:            1000,
		MaxConcurrentStreams: 1000,
		ShutdownTimeout:      10 * time.Second,
	}
}

// Validate checks the listener settings.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("grpc.addr is required")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("grpc.rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("grpc.rate_burst must be at least 1 when rate limiting")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("grpc.shutdown_timeout must be positive")
	}
	return nil
}

// QueryService is the read side served by Recommendations.
type QueryService interface {
	Recommendations(ctx context.Context, userID int64, maxResults int) ([]models.ScoredEvent, error)
	SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]models.ScoredEvent, error)
	InteractionCounts(ctx context.Context, eventIDs []int64) ([]models.ScoredEvent, error)
}

// ActionSubmitter is the write side served by Collector.
type ActionSubmitter interface {
	Submit(ctx context.Context, req *collector.SubmitActionRequest) (*models.Action, error)
}

// Service implements both gRPC services.
type Service struct {
	queries   QueryService
	submitter ActionSubmitter
}

// NewService creates a Service. submitter may be nil, in which case
// SubmitAction answers Unimplemented.
func NewService(queries QueryService, submitter ActionSubmitter) (*Service, error) {
	if queries == nil {
		return nil, fmt.Errorf("query service required")
	}
	return &Service{queries: queries, submitter: submitter}, nil
}

// Register adds both services to s.
func (s *Service) Register(r grpc.ServiceRegistrar) {
	RegisterRecommendationsServer(r, s)
	RegisterCollectorServer(r, s)
}

// NewGRPCServer builds a grpc.Server with the interceptor chain and
// registers svc on it.
func NewGRPCServer(cfg Config, svc *Service) *grpc.Server {
	limiter := newRateLimiter(cfg.RateLimit, cfg.RateBurst)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			correlationUnaryInterceptor,
			observeUnaryInterceptor,
			limiter.unary,
			recoveryUnaryInterceptor,
		),
		grpc.ChainStreamInterceptor(
			correlationStreamInterceptor,
			observeStreamInterceptor,
			limiter.stream,
			recoveryStreamInterceptor,
		),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams))
	}

	srv := grpc.NewServer(opts...)
	svc.Register(srv)
	return srv
}

// GetRecommendationsForUser streams recommendations, best first.
func (s *Service) GetRecommendationsForUser(req *RecommendationsRequest, stream ScoredEventStream) error {
	events, err := s.queries.Recommendations(stream.Context(), req.UserID, req.MaxResults)
	if err != nil {
		return toStatus(err)
	}
	return sendAll(stream, events)
}

// GetSimilarEvents streams the neighbours of an event.
func (s *Service) GetSimilarEvents(req *SimilarEventsRequest, stream ScoredEventStream) error {
	var userID int64
	if req.UserID != nil {
		if *req.UserID <= 0 {
			return status.Errorf(codes.InvalidArgument, "user_id must be positive when set, got %d", *req.UserID)
		}
		userID = *req.UserID
	}
	events, err := s.queries.SimilarEvents(stream.Context(), req.EventID, userID, req.MaxResults)
	if err != nil {
		return toStatus(err)
	}
	return sendAll(stream, events)
}

// GetInteractionCounts streams rating sums, highest first.
func (s *Service) GetInteractionCounts(req *InteractionCountsRequest, stream ScoredEventStream) error {
	if n := len(req.EventIDs); n > models.MaxInteractionCountIDs {
		return status.Errorf(codes.InvalidArgument, "event_ids must have at most %d elements, got %d", models.MaxInteractionCountIDs, n)
	}
	events, err := s.queries.InteractionCounts(stream.Context(), req.EventIDs)
	if err != nil {
		return toStatus(err)
	}
	return sendAll(stream, events)
}

// SubmitAction appends an action to the raw action log.
func (s *Service) SubmitAction(ctx context.Context, req *SubmitActionRequest) (*SubmitActionResponse, error) {
	if s.submitter == nil {
		return nil, status.Error(codes.Unimplemented, "action collection is disabled")
	}
	action, err := s.submitter.Submit(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SubmitActionResponse{Accepted: true, IdempotencyKey: action.IdempotencyKey()}, nil
}

func sendAll(stream ScoredEventStream, events []models.ScoredEvent) error {
	for i := range events {
		if err := stream.Send(&events[i]); err != nil {
			return err
		}
	}
	return nil
}
