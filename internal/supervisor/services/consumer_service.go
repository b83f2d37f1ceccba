// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package services

import (
	"context"
	"fmt"
)

// ConsumerRunner matches *eventprocessor.BatchConsumer.
type ConsumerRunner interface {
	Name() string
	Run(ctx context.Context) error
}

// ConsumerService runs one batch consumer loop under supervision.
//
// Run only returns an error when the final flush of a batch could not
// complete. The batch stays uncommitted and is redelivered, so a restart
// by the supervisor resumes from the last commit.
type ConsumerService struct {
	consumer ConsumerRunner
	stopped  func()
}

// ConsumerOption configures a ConsumerService.
type ConsumerOption func(*ConsumerService)

// WithStopHook runs fn when the loop returns cleanly, after its last commit.
// It is skipped when Run fails, since the last batch is then uncommitted.
func WithStopHook(fn func()) ConsumerOption {
	return func(s *ConsumerService) {
		s.stopped = fn
	}
}

// NewConsumerService wraps consumer.
func NewConsumerService(consumer ConsumerRunner, opts ...ConsumerOption) *ConsumerService {
	s := &ConsumerService{consumer: consumer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	if err := s.consumer.Run(ctx); err != nil {
		return fmt.Errorf("consumer %s: %w", s.consumer.Name(), err)
	}
	if s.stopped != nil {
		s.stopped()
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *ConsumerService) String() string {
	return "consumer-" + s.consumer.Name()
}
