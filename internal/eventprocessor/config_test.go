// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"errors"
	"testing"
	"time"
)

func TestStreamConfig(t *testing.T) {
	cfg := DefaultActionStreamConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default action stream invalid: %v", err)
	}
	if got := cfg.Subject(3); got != "user-actions.3" {
		t.Errorf("Subject(3) = %q", got)
	}
	if got := cfg.Wildcard(); got != "user-actions.>" {
		t.Errorf("Wildcard() = %q", got)
	}

	sim := DefaultSimilarityStreamConfig()
	if err := sim.Validate(); err != nil {
		t.Fatalf("default similarity stream invalid: %v", err)
	}
	if sim.Name == cfg.Name || sim.SubjectPrefix == cfg.SubjectPrefix {
		t.Error("streams must not overlap")
	}

	tests := []struct {
		name   string
		mutate func(*StreamConfig)
	}{
		{"empty name", func(c *StreamConfig) { c.Name = "" }},
		{"dotted name", func(c *StreamConfig) { c.Name = "A.B" }},
		{"wildcard prefix", func(c *StreamConfig) { c.SubjectPrefix = "a.*" }},
		{"zero partitions", func(c *StreamConfig) { c.Partitions = 0 }},
		{"bad storage", func(c *StreamConfig) { c.Storage = "disk" }},
		{"negative window", func(c *StreamConfig) { c.DuplicateWindow = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultActionStreamConfig()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConsumerConfigValidate(t *testing.T) {
	cfg := DefaultConsumerConfig("aggregator")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default consumer invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ConsumerConfig)
	}{
		{"empty durable", func(c *ConsumerConfig) { c.Durable = "" }},
		{"zero batch", func(c *ConsumerConfig) { c.BatchSize = 0 }},
		{"ack pending below batch", func(c *ConsumerConfig) { c.MaxAckPending = 10 }},
		{"zero fetch wait", func(c *ConsumerConfig) { c.FetchMaxWait = 0 }},
		{"max backoff below base", func(c *ConsumerConfig) { c.MaxRetryBackoff = time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConsumerConfig("aggregator")
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
