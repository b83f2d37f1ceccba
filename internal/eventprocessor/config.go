// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"fmt"
	"strings"
	"time"
)

// StreamConfig describes one partitioned JetStream stream.
type StreamConfig struct {
	Name          string `koanf:"name"`
	SubjectPrefix string `koanf:"subject_prefix"`

	// Partitions is the number of subjects records are spread over.
	Partitions int `koanf:"partitions"`

	MaxAge          time.Duration `koanf:"max_age"`
	MaxBytes        int64         `koanf:"max_bytes"`
	MaxMsgs         int64         `koanf:"max_msgs"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	Replicas        int           `koanf:"replicas"`

	// Storage is "file" or "memory".
	Storage string `koanf:"storage"`
}

// DefaultActionStreamConfig returns the raw action log defaults.
func DefaultActionStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "USER_ACTIONS",
		SubjectPrefix:   "user-actions",
		Partitions:      8,
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        4 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
		Storage:         "file",
	}
}

// DefaultSimilarityStreamConfig returns the similarity-update log defaults.
func DefaultSimilarityStreamConfig() StreamConfig {
	cfg := DefaultActionStreamConfig()
	cfg.Name = "EVENTS_SIMILARITY"
	cfg.SubjectPrefix = "events-similarity"
	return cfg
}

// Subject returns the subject of partition p.
func (c *StreamConfig) Subject(p int) string {
	return fmt.Sprintf("%s.%d", c.SubjectPrefix, p)
}

// Wildcard matches every partition subject of the stream.
func (c *StreamConfig) Wildcard() string {
	return c.SubjectPrefix + ".>"
}

// Validate checks the stream settings.
func (c *StreamConfig) Validate() error {
	if c.Name == "" || strings.ContainsAny(c.Name, " .*>") {
		return fmt.Errorf("%w: stream name %q", ErrInvalidConfig, c.Name)
	}
	if c.SubjectPrefix == "" || strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("%w: stream %s subject prefix %q", ErrInvalidConfig, c.Name, c.SubjectPrefix)
	}
	if c.Partitions < 1 {
		return fmt.Errorf("%w: stream %s partitions must be at least 1", ErrInvalidConfig, c.Name)
	}
	if c.Storage != "file" && c.Storage != "memory" {
		return fmt.Errorf("%w: stream %s storage must be file or memory, got %q", ErrInvalidConfig, c.Name, c.Storage)
	}
	if c.DuplicateWindow < 0 || c.MaxAge < 0 {
		return fmt.Errorf("%w: stream %s durations must not be negative", ErrInvalidConfig, c.Name)
	}
	return nil
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	ServerName        string `koanf:"server_name"`
	Host              string `koanf:"host"`
	Port              int    `koanf:"port"`
	StoreDir          string `koanf:"store_dir"`
	JetStreamMaxMem   int64  `koanf:"max_memory"`
	JetStreamMaxStore int64  `koanf:"max_store"`
	MaxPayload        int32  `koanf:"max_payload"`
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ServerName:        "eventsim",
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,
		JetStreamMaxStore: 10 << 30,
		MaxPayload:        1 << 20,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	CircuitBreaker  CircuitBreakerConfig
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 << 20,
		CircuitBreaker:  DefaultCircuitBreakerConfig("nats-publisher"),
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // allowed in half-open state
	Interval         time.Duration // reset interval for closed-state counts
	Timeout          time.Duration // time spent open
	FailureThreshold uint32        // consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// ConsumerConfig configures one batch consumer loop.
type ConsumerConfig struct {
	Durable       string        `koanf:"durable"`
	BatchSize     int           `koanf:"batch_size"`
	FetchMaxWait  time.Duration `koanf:"fetch_max_wait"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxDeliver    int           `koanf:"max_deliver"`
	MaxAckPending int           `koanf:"max_ack_pending"`

	// RetryBackoff and MaxRetryBackoff bound the exponential delay used when
	// fetching or flushing fails.
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	MaxRetryBackoff time.Duration `koanf:"max_retry_backoff"`

	// ShutdownTimeout bounds the final flush and commit after cancellation.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DefaultConsumerConfig returns defaults for a consumer named durable.
func DefaultConsumerConfig(durable string) ConsumerConfig {
	return ConsumerConfig{
		Durable:         durable,
		BatchSize:       100,
		FetchMaxWait:    time.Second,
		AckWait:         30 * time.Second,
		MaxDeliver:      10,
		MaxAckPending:   1000,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the consumer settings.
func (c *ConsumerConfig) Validate() error {
	if c.Durable == "" || strings.ContainsAny(c.Durable, " .*>") {
		return fmt.Errorf("%w: durable name %q", ErrInvalidConfig, c.Durable)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: consumer %s batch size must be at least 1", ErrInvalidConfig, c.Durable)
	}
	if c.MaxAckPending != -1 && c.MaxAckPending < c.BatchSize {
		return fmt.Errorf("%w: consumer %s max ack pending %d below batch size %d",
			ErrInvalidConfig, c.Durable, c.MaxAckPending, c.BatchSize)
	}
	if c.FetchMaxWait <= 0 || c.AckWait <= 0 || c.RetryBackoff <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: consumer %s timeouts must be positive", ErrInvalidConfig, c.Durable)
	}
	if c.MaxRetryBackoff < c.RetryBackoff {
		return fmt.Errorf("%w: consumer %s max retry backoff below retry backoff", ErrInvalidConfig, c.Durable)
	}
	return nil
}
