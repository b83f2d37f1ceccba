// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/eventsim/internal/models"
)

type testBroker struct {
	server       *EmbeddedServer
	conn         *natsgo.Conn
	js           jetstream.JetStream
	actions      StreamConfig
	similarities StreamConfig
}

// startTestBroker runs an embedded JetStream server with both pipeline
// streams in memory storage.
func startTestBroker(t *testing.T) *testBroker {
	t.Helper()

	cfg := DefaultServerConfig()
	cfg.Port = -1
	cfg.StoreDir = t.TempDir()
	cfg.JetStreamMaxMem = 64 << 20
	cfg.JetStreamMaxStore = 256 << 20

	srv, err := NewEmbeddedServer(&cfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream.New() error: %v", err)
	}

	actions := DefaultActionStreamConfig()
	actions.Storage = "memory"
	actions.Partitions = 4
	actions.MaxBytes = 16 << 20
	similarities := DefaultSimilarityStreamConfig()
	similarities.Storage = "memory"
	similarities.Partitions = 4
	similarities.MaxBytes = 16 << 20

	initializer, err := NewStreamInitializer(js, actions, similarities)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := initializer.EnsureStreams(ctx); err != nil {
		t.Fatalf("EnsureStreams() error: %v", err)
	}

	return &testBroker{server: srv, conn: nc, js: js, actions: actions, similarities: similarities}
}

func (b *testBroker) publisher(t *testing.T) *Publisher {
	t.Helper()
	pub, err := NewPublisher(DefaultPublisherConfig(b.server.ClientURL()), b.actions, b.similarities, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

func testConsumerConfig(durable string) ConsumerConfig {
	cfg := DefaultConsumerConfig(durable)
	cfg.BatchSize = 10
	cfg.FetchMaxWait = 100 * time.Millisecond
	cfg.AckWait = 2 * time.Second
	cfg.RetryBackoff = 10 * time.Millisecond
	cfg.MaxRetryBackoff = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// recordingHandler decodes actions and records every call.
type recordingHandler struct {
	mu          sync.Mutex
	handled     []*models.Action
	flushes     int
	failFlushes int // number of leading Flush calls that fail; -1 fails forever
	commits     int
	pending     int
}

func (h *recordingHandler) Name() string { return "recording" }

func (h *recordingHandler) Handle(_ context.Context, data []byte) error {
	a, err := DecodeAction(data)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, a)
	h.pending++
	return nil
}

func (h *recordingHandler) Flush(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushes++
	if h.failFlushes < 0 || h.flushes <= h.failFlushes {
		return errors.New("store unavailable")
	}
	h.pending = 0
	return nil
}

func (h *recordingHandler) Committed(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commits++
}

func (h *recordingHandler) snapshot() (handled, flushes, commits int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled), h.flushes, h.commits
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// runConsumer starts c and returns a stop function yielding Run's error.
func runConsumer(t *testing.T, c *BatchConsumer) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	var once sync.Once
	var result error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-errCh:
			case <-time.After(10 * time.Second):
				t.Error("consumer did not stop")
			}
		})
		return result
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func ackFloor(t *testing.T, js jetstream.JetStream, stream, durable string) (uint64, int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cons, err := js.Consumer(ctx, stream, durable)
	if err != nil {
		t.Fatalf("consumer lookup: %v", err)
	}
	info, err := cons.Info(ctx)
	if err != nil {
		t.Fatalf("consumer info: %v", err)
	}
	return info.AckFloor.Stream, info.NumAckPending
}
