// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/models"
)

// Dial creates a client connection that speaks the JSON codec. Extra
// options are applied after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

// outgoing forwards the correlation id in ctx, if any.
func outgoing(ctx context.Context) context.Context {
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		return metadata.AppendToOutgoingContext(ctx, logging.CorrelationIDHeader, id)
	}
	return ctx
}

// RecommendationsClient calls eventsim.v1.Recommendations.
type RecommendationsClient struct {
	cc grpc.ClientConnInterface
}

// NewRecommendationsClient wraps cc.
func NewRecommendationsClient(cc grpc.ClientConnInterface) *RecommendationsClient {
	return &RecommendationsClient{cc: cc}
}

// StreamRecommendationsForUser calls fn for each streamed result. A non-nil
// error from fn cancels the call and is returned.
func (c *RecommendationsClient) StreamRecommendationsForUser(ctx context.Context, req *RecommendationsRequest, fn func(models.ScoredEvent) error) error {
	return c.stream(ctx, 0, methodGetRecommendations, req, fn)
}

// StreamSimilarEvents calls fn for each streamed result.
func (c *RecommendationsClient) StreamSimilarEvents(ctx context.Context, req *SimilarEventsRequest, fn func(models.ScoredEvent) error) error {
	return c.stream(ctx, 1, methodGetSimilarEvents, req, fn)
}

// StreamInteractionCounts calls fn for each streamed result.
func (c *RecommendationsClient) StreamInteractionCounts(ctx context.Context, req *InteractionCountsRequest, fn func(models.ScoredEvent) error) error {
	return c.stream(ctx, 2, methodGetInteractionCounts, req, fn)
}

// GetRecommendationsForUser collects the stream into a slice.
func (c *RecommendationsClient) GetRecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]models.ScoredEvent, error) {
	var out []models.ScoredEvent
	err := c.StreamRecommendationsForUser(ctx, &RecommendationsRequest{UserID: userID, MaxResults: maxResults}, collect(&out))
	return out, err
}

// GetSimilarEvents collects the stream into a slice. A zero userID sends
// no user filter.
func (c *RecommendationsClient) GetSimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]models.ScoredEvent, error) {
	req := &SimilarEventsRequest{EventID: eventID, MaxResults: maxResults}
	if userID != 0 {
		req.UserID = &userID
	}
	var out []models.ScoredEvent
	err := c.StreamSimilarEvents(ctx, req, collect(&out))
	return out, err
}

// GetInteractionCounts collects the stream into a slice.
func (c *RecommendationsClient) GetInteractionCounts(ctx context.Context, eventIDs []int64) ([]models.ScoredEvent, error) {
	var out []models.ScoredEvent
	err := c.StreamInteractionCounts(ctx, &InteractionCountsRequest{EventIDs: eventIDs}, collect(&out))
	return out, err
}

func collect(out *[]models.ScoredEvent) func(models.ScoredEvent) error {
	return func(e models.ScoredEvent) error {
		*out = append(*out, e)
		return nil
	}
}

func (c *RecommendationsClient) stream(ctx context.Context, desc int, method string, req any, fn func(models.ScoredEvent) error) error {
	ctx, cancel := context.WithCancel(outgoing(ctx))
	defer cancel()

	st, err := c.cc.NewStream(ctx, &recommendationsServiceDesc.Streams[desc], method)
	if err != nil {
		return err
	}
	if err := st.SendMsg(req); err != nil {
		return err
	}
	if err := st.CloseSend(); err != nil {
		return err
	}
	for {
		var ev models.ScoredEvent
		if err := st.RecvMsg(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// CollectorClient calls eventsim.v1.Collector.
type CollectorClient struct {
	cc           grpc.ClientConnInterface
	asyncTimeout time.Duration
	wg           sync.WaitGroup
}

// NewCollectorClient wraps cc. asyncTimeout bounds SubmitActionAsync calls.
func NewCollectorClient(cc grpc.ClientConnInterface, asyncTimeout time.Duration) *CollectorClient {
	if asyncTimeout <= 0 {
		asyncTimeout = 5 * time.Second
	}
	return &CollectorClient{cc: cc, asyncTimeout: asyncTimeout}
}

// SubmitAction blocks until the action is on the log or the call fails.
func (c *CollectorClient) SubmitAction(ctx context.Context, req *SubmitActionRequest) (*SubmitActionResponse, error) {
	out := new(SubmitActionResponse)
	if err := c.cc.Invoke(outgoing(ctx), methodSubmitAction, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitActionAsync submits in the background and only logs failures, so
// domain operations never wait on delivery.
func (c *CollectorClient) SubmitActionAsync(req SubmitActionRequest) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.asyncTimeout)
		defer cancel()

		if _, err := c.SubmitAction(ctx, &req); err != nil {
			logging.Warn().
				Err(err).
				Int64("user_id", req.UserID).
				Int64("event_id", req.EventID).
				Str("kind", req.ActionKind).
				Msg("Action submission failed")
		}
	}()
}

// Wait blocks until every pending SubmitActionAsync call has finished.
func (c *CollectorClient) Wait() {
	c.wg.Wait()
}
