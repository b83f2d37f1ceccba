// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used to manage streams.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer creates or updates the pipeline streams.
type StreamInitializer struct {
	js      JetStreamContext
	streams []StreamConfig
}

// NewStreamInitializer validates every stream configuration.
func NewStreamInitializer(js JetStreamContext, streams ...StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: at least one stream required", ErrInvalidConfig)
	}
	for i := range streams {
		if err := streams[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &StreamInitializer{js: js, streams: streams}, nil
}

// EnsureStreams creates missing streams and updates existing ones.
func (s *StreamInitializer) EnsureStreams(ctx context.Context) error {
	for i := range s.streams {
		if _, err := s.EnsureStream(ctx, &s.streams[i]); err != nil {
			return err
		}
	}
	return nil
}

// EnsureStream creates or updates a single stream.
func (s *StreamInitializer) EnsureStream(ctx context.Context, cfg *StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetStreamConfig(cfg)

	_, err := s.js.Stream(ctx, cfg.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("%w: check stream %s: %w", ErrBrokerUnavailable, cfg.Name, err)
}

// Healthy reports whether every stream is reachable.
func (s *StreamInitializer) Healthy(ctx context.Context) error {
	for i := range s.streams {
		if _, err := s.js.Stream(ctx, s.streams[i].Name); err != nil {
			return fmt.Errorf("stream %s: %w", s.streams[i].Name, err)
		}
	}
	return nil
}

func jetStreamConfig(cfg *StreamConfig) jetstream.StreamConfig {
	storage := jetstream.FileStorage
	if cfg.Storage == "memory" {
		storage = jetstream.MemoryStorage
	}
	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}
	return jetstream.StreamConfig{
		Name:        cfg.Name,
		Subjects:    []string{cfg.Wildcard()},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxBytes:    cfg.MaxBytes,
		MaxMsgs:     cfg.MaxMsgs,
		Duplicates:  cfg.DuplicateWindow,
		Replicas:    replicas,
		Storage:     storage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}
}
