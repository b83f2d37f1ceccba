// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package config

import (
	"time"

	"github.com/tomtom215/eventsim/internal/aggregator"
	"github.com/tomtom215/eventsim/internal/api"
	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/query"
	"github.com/tomtom215/eventsim/internal/rpc"
	"github.com/tomtom215/eventsim/internal/store"
	"github.com/tomtom215/eventsim/internal/supervisor"
	"github.com/tomtom215/eventsim/internal/weight"
)

// Config holds all application configuration.
type Config struct {
	NATS       NATSConfig            `koanf:"nats"`
	Streams    StreamsConfig         `koanf:"streams"`
	Consumer   ConsumerConfig        `koanf:"consumer"`
	Database   store.Config          `koanf:"database"`
	Aggregator AggregatorConfig      `koanf:"aggregator"`
	Weights    weight.Policy         `koanf:"weights"`
	GRPC       GRPCConfig            `koanf:"grpc"`
	Server     api.Config            `koanf:"server"`
	Logging    logging.Config        `koanf:"logging"`
	Supervisor supervisor.TreeConfig `koanf:"supervisor"`
}

// NATSConfig holds broker connection settings and, when Embedded is set,
// the in-process JetStream server.
type NATSConfig struct {
	// Embedded starts a JetStream server inside the process. URL is then
	// replaced by the embedded server's client URL.
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`

	ServerName string `koanf:"server_name"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	StoreDir   string `koanf:"store_dir"`
	MaxMemory  int64  `koanf:"max_memory"`
	MaxStore   int64  `koanf:"max_store"`
	MaxPayload int32  `koanf:"max_payload"`

	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`

	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
}

// ServerConfig returns the embedded server settings.
func (c *NATSConfig) ServerConfig() eventprocessor.ServerConfig {
	return eventprocessor.ServerConfig{
		ServerName:        c.ServerName,
		Host:              c.Host,
		Port:              c.Port,
		StoreDir:          c.StoreDir,
		JetStreamMaxMem:   c.MaxMemory,
		JetStreamMaxStore: c.MaxStore,
		MaxPayload:        c.MaxPayload,
	}
}

// PublisherConfig returns the publisher settings for url.
func (c *NATSConfig) PublisherConfig(url string) eventprocessor.PublisherConfig {
	return eventprocessor.PublisherConfig{
		URL:             url,
		MaxReconnects:   c.MaxReconnects,
		ReconnectWait:   c.ReconnectWait,
		ReconnectBuffer: c.ReconnectBuffer,
		CircuitBreaker: eventprocessor.CircuitBreakerConfig{
			Name:             "nats-publisher",
			MaxRequests:      c.BreakerMaxRequests,
			Interval:         c.BreakerInterval,
			Timeout:          c.BreakerTimeout,
			FailureThreshold: c.BreakerFailures,
		},
	}
}

// StreamsConfig names the two pipeline logs.
type StreamsConfig struct {
	Actions      eventprocessor.StreamConfig `koanf:"actions"`
	Similarities eventprocessor.StreamConfig `koanf:"similarities"`
}

// ConsumerConfig holds one batch consumer per pipeline loop.
type ConsumerConfig struct {
	// Aggregator reads the action log and publishes similarity updates.
	Aggregator   eventprocessor.ConsumerConfig `koanf:"aggregator"`
	// Interactions reads the action log into the interactions index.
	Interactions eventprocessor.ConsumerConfig `koanf:"interactions"`
	// Similarities reads the similarity-update log into the similarities index.
	Similarities eventprocessor.ConsumerConfig `koanf:"similarities"`
}

// AggregatorConfig controls the optional state snapshot.
type AggregatorConfig struct {
	SnapshotEnabled     bool          `koanf:"snapshot_enabled"`
	SnapshotPath        string        `koanf:"snapshot_path"`
	SnapshotInterval    time.Duration `koanf:"snapshot_interval"`
	SnapshotSyncWrites  bool          `koanf:"snapshot_sync_writes"`
	SnapshotCompression bool          `koanf:"snapshot_compression"`
}

// Snapshot returns the BadgerDB snapshot settings.
func (c *AggregatorConfig) Snapshot() aggregator.SnapshotConfig {
	cfg := aggregator.DefaultSnapshotConfig(c.SnapshotPath)
	cfg.Interval = c.SnapshotInterval
	cfg.SyncWrites = c.SnapshotSyncWrites
	cfg.Compression = c.SnapshotCompression
	return cfg
}

// GRPCConfig holds the serving listener and the query limits behind it.
type GRPCConfig struct {
	Addr                 string        `koanf:"addr"`
	QueryTimeout         time.Duration `koanf:"query_timeout"`
	MaxResultsCap        int           `koanf:"max_results_cap"`
	RateLimit            float64       `koanf:"rate_limit"`
	RateBurst            int           `koanf:"rate_burst"`
	MaxConcurrentStreams uint32        `koanf:"max_concurrent_streams"`
	ShutdownTimeout      time.Duration `koanf:"shutdown_timeout"`
}

// Server returns the gRPC listener settings.
func (c *GRPCConfig) Server() rpc.Config {
	return rpc.Config{
		Addr:                 c.Addr,
		RateLimit:            c.RateLimit,
		RateBurst:            c.RateBurst,
		MaxConcurrentStreams: c.MaxConcurrentStreams,
		ShutdownTimeout:      c.ShutdownTimeout,
	}
}

// Query returns the query engine settings.
func (c *GRPCConfig) Query() query.Config {
	return query.Config{
		Timeout:       c.QueryTimeout,
		MaxResultsCap: c.MaxResultsCap,
	}
}

// defaultConfig returns a Config with every default filled in. It is the
// first koanf layer, so every key below can be overridden.
func defaultConfig() *Config {
	nats := eventprocessor.DefaultServerConfig()
	publisher := eventprocessor.DefaultPublisherConfig("nats://127.0.0.1:4222")
	rpcCfg := rpc.DefaultConfig()
	queryCfg := query.DefaultConfig()
	snapshot := aggregator.DefaultSnapshotConfig("/data/aggregator")
	logCfg := logging.DefaultConfig()
	logCfg.Output = nil

	return &Config{
		NATS: NATSConfig{
			Embedded:           true,
			URL:                publisher.URL,
			ServerName:         nats.ServerName,
			Host:               nats.Host,
			Port:               nats.Port,
			StoreDir:           nats.StoreDir,
			MaxMemory:          nats.JetStreamMaxMem,
			MaxStore:           nats.JetStreamMaxStore,
			MaxPayload:         nats.MaxPayload,
			MaxReconnects:      publisher.MaxReconnects,
			ReconnectWait:      publisher.ReconnectWait,
			ReconnectBuffer:    publisher.ReconnectBuffer,
			BreakerMaxRequests: publisher.CircuitBreaker.MaxRequests,
			BreakerInterval:    publisher.CircuitBreaker.Interval,
			BreakerTimeout:     publisher.CircuitBreaker.Timeout,
			BreakerFailures:    publisher.CircuitBreaker.FailureThreshold,
		},
		Streams: StreamsConfig{
			Actions:      eventprocessor.DefaultActionStreamConfig(),
			Similarities: eventprocessor.DefaultSimilarityStreamConfig(),
		},
		Consumer: ConsumerConfig{
			Aggregator:   eventprocessor.DefaultConsumerConfig("aggregator"),
			Interactions: eventprocessor.DefaultConsumerConfig("interaction-sink"),
			Similarities: eventprocessor.DefaultConsumerConfig("similarity-sink"),
		},
		Database: store.DefaultConfig(),
		Aggregator: AggregatorConfig{
			SnapshotEnabled:     false,
			SnapshotPath:        snapshot.Path,
			SnapshotInterval:    snapshot.Interval,
			SnapshotSyncWrites:  snapshot.SyncWrites,
			SnapshotCompression: snapshot.Compression,
		},
		Weights: weight.DefaultPolicy(),
		GRPC: GRPCConfig{
			Addr:                 rpcCfg.Addr,
			QueryTimeout:         queryCfg.Timeout,
			MaxResultsCap:        queryCfg.MaxResultsCap,
			RateLimit:            rpcCfg.RateLimit,
			RateBurst:            rpcCfg.RateBurst,
			MaxConcurrentStreams: rpcCfg.MaxConcurrentStreams,
			ShutdownTimeout:      rpcCfg.ShutdownTimeout,
		},
		Server:     api.DefaultConfig(),
		Logging:    logCfg,
		Supervisor: supervisor.DefaultTreeConfig(),
	}
}
