// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package config

import (
	"fmt"

	"github.com/tomtom215/eventsim/internal/logging"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateStreams(); err != nil {
		return err
	}
	if err := c.validateConsumers(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.validateAggregator(); err != nil {
		return err
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	rpcCfg := c.GRPC.Server()
	if err := rpcCfg.Validate(); err != nil {
		return err
	}
	queryCfg := c.GRPC.Query()
	if err := queryCfg.Validate(); err != nil {
		return fmt.Errorf("grpc: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Supervisor.FailureThreshold < 0 || c.Supervisor.FailureBackoff < 0 || c.Supervisor.ShutdownTimeout < 0 {
		return fmt.Errorf("supervisor settings must not be negative")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.Embedded {
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("nats.store_dir is required for the embedded server")
		}
		if c.NATS.Port < -1 || c.NATS.Port > 65535 {
			return fmt.Errorf("nats.port must be -1 or between 0 and 65535, got %d", c.NATS.Port)
		}
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when the embedded server is disabled")
	}
	return nil
}

func (c *Config) validateStreams() error {
	if err := c.Streams.Actions.Validate(); err != nil {
		return err
	}
	if err := c.Streams.Similarities.Validate(); err != nil {
		return err
	}
	if c.Streams.Actions.Name == c.Streams.Similarities.Name {
		return fmt.Errorf("streams.actions and streams.similarities must use different names")
	}
	if c.Streams.Actions.SubjectPrefix == c.Streams.Similarities.SubjectPrefix {
		return fmt.Errorf("streams.actions and streams.similarities must use different subject prefixes")
	}
	return nil
}

func (c *Config) validateConsumers() error {
	if err := c.Consumer.Aggregator.Validate(); err != nil {
		return err
	}
	if err := c.Consumer.Interactions.Validate(); err != nil {
		return err
	}
	if err := c.Consumer.Similarities.Validate(); err != nil {
		return err
	}
	// The aggregator and the interaction sink share the action stream and
	// need their own cursors.
	if c.Consumer.Aggregator.Durable == c.Consumer.Interactions.Durable {
		return fmt.Errorf("consumer.aggregator and consumer.interactions must use different durable names")
	}
	return nil
}

func (c *Config) validateAggregator() error {
	if !c.Aggregator.SnapshotEnabled {
		return nil
	}
	if c.Aggregator.SnapshotPath == "" {
		return fmt.Errorf("aggregator.snapshot_path is required when snapshots are enabled")
	}
	if c.Aggregator.SnapshotInterval <= 0 {
		return fmt.Errorf("aggregator.snapshot_interval must be positive")
	}
	return nil
}
