// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/eventsim/internal/metrics"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

func publishActions(t *testing.T, pub *Publisher, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		a := &models.Action{
			UserID:    int64(i + 1),
			EventID:   int64(i%3 + 1),
			Kind:      weight.ActionView,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := pub.PublishAction(context.Background(), a); err != nil {
			t.Fatalf("PublishAction(%d) error: %v", i, err)
		}
	}
}

func TestBatchConsumer_HandlesAndCommits(t *testing.T) {
	broker := startTestBroker(t)
	publishActions(t, broker.publisher(t), 25)

	h := &recordingHandler{}
	c, err := NewBatchConsumer(broker.js, broker.actions, testConsumerConfig("handles"), h)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)

	waitFor(t, 5*time.Second, func() bool {
		floor, pending := ackFloor(t, broker.js, broker.actions.Name, "handles")
		return floor == 25 && pending == 0
	}, "all 25 messages committed")

	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	handled, flushes, commits := h.snapshot()
	if handled != 25 {
		t.Errorf("handled %d, want 25", handled)
	}
	if flushes < 3 || commits != flushes {
		t.Errorf("flushes = %d, commits = %d; want one commit per flushed batch of at most 10", flushes, commits)
	}
	if c.Ready() {
		t.Error("Ready() still true after stop")
	}
}

func TestBatchConsumer_PublisherDeduplicatesReplays(t *testing.T) {
	broker := startTestBroker(t)
	pub := broker.publisher(t)

	a := &models.Action{UserID: 1, EventID: 1, Kind: weight.ActionLike, Timestamp: time.Unix(1000, 0)}
	for i := 0; i < 3; i++ {
		if err := pub.PublishAction(context.Background(), a); err != nil {
			t.Fatalf("PublishAction() error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := broker.js.Stream(ctx, broker.actions.Name)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("stream holds %d messages, want 1", info.State.Msgs)
	}
}

func TestBatchConsumer_SkipsPoisonMessages(t *testing.T) {
	broker := startTestBroker(t)

	ctx := context.Background()
	if _, err := broker.js.Publish(ctx, broker.actions.Subject(0), []byte("not json")); err != nil {
		t.Fatalf("publish poison: %v", err)
	}
	if _, err := broker.js.Publish(ctx, broker.actions.Subject(1),
		[]byte(`{"user_id":1,"event_id":2,"action_kind":"SHARE","timestamp":"2026-03-01T00:00:00Z"}`)); err != nil {
		t.Fatalf("publish unknown kind: %v", err)
	}
	publishActions(t, broker.publisher(t), 1)

	decodeBefore := testutil.ToFloat64(metrics.ConsumerSkipped.WithLabelValues("recording", "decode"))
	kindBefore := testutil.ToFloat64(metrics.ConsumerSkipped.WithLabelValues("recording", "unknown_kind"))

	h := &recordingHandler{}
	c, err := NewBatchConsumer(broker.js, broker.actions, testConsumerConfig("poison"), h)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)

	waitFor(t, 5*time.Second, func() bool {
		floor, pending := ackFloor(t, broker.js, broker.actions.Name, "poison")
		return floor == 3 && pending == 0
	}, "batch with poison messages committed")
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if handled, _, _ := h.snapshot(); handled != 1 {
		t.Errorf("handled %d, want only the valid message", handled)
	}
	if got := testutil.ToFloat64(metrics.ConsumerSkipped.WithLabelValues("recording", "decode")) - decodeBefore; got != 1 {
		t.Errorf("decode skips = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ConsumerSkipped.WithLabelValues("recording", "unknown_kind")) - kindBefore; got != 1 {
		t.Errorf("unknown kind skips = %v, want 1", got)
	}
}

func TestBatchConsumer_PoisonDoesNotCommitUnflushedMessages(t *testing.T) {
	broker := startTestBroker(t)
	publishActions(t, broker.publisher(t), 1)
	if _, err := broker.js.Publish(context.Background(), broker.actions.Subject(0), []byte("not json")); err != nil {
		t.Fatalf("publish poison: %v", err)
	}

	cfg := testConsumerConfig("poison-unflushed")
	cfg.ShutdownTimeout = 100 * time.Millisecond

	h := &recordingHandler{failFlushes: -1}
	c, err := NewBatchConsumer(broker.js, broker.actions, cfg, h)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)
	waitFor(t, 5*time.Second, func() bool {
		handled, flushes, _ := h.snapshot()
		return handled == 1 && flushes >= 2
	}, "failing flushes")

	if err := stop(); err == nil {
		t.Fatal("expected Run() to report the failed final flush")
	}
	if _, _, commits := h.snapshot(); commits != 0 {
		t.Errorf("commits = %d, want 0", commits)
	}
	if floor, _ := ackFloor(t, broker.js, broker.actions.Name, "poison-unflushed"); floor != 0 {
		t.Errorf("ack floor = %d, want 0: the skipped message must not commit the unflushed one before it", floor)
	}
}

func TestBatchConsumer_RetriesFlushBeforeCommit(t *testing.T) {
	broker := startTestBroker(t)
	publishActions(t, broker.publisher(t), 5)

	h := &recordingHandler{failFlushes: 3}
	c, err := NewBatchConsumer(broker.js, broker.actions, testConsumerConfig("retry"), h)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)

	waitFor(t, 5*time.Second, func() bool {
		_, _, commits := h.snapshot()
		return commits == 1
	}, "commit after flush retries")
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	handled, flushes, _ := h.snapshot()
	if handled != 5 {
		t.Errorf("handled %d, want 5 (no redelivery while retrying)", handled)
	}
	if flushes != 4 {
		t.Errorf("flushes = %d, want 3 failures and 1 success", flushes)
	}
	floor, _ := ackFloor(t, broker.js, broker.actions.Name, "retry")
	if floor != 5 {
		t.Errorf("ack floor = %d, want 5", floor)
	}
}

func TestBatchConsumer_UncommittedBatchIsRedelivered(t *testing.T) {
	broker := startTestBroker(t)
	publishActions(t, broker.publisher(t), 4)

	cfg := testConsumerConfig("redeliver")
	cfg.AckWait = 300 * time.Millisecond
	cfg.ShutdownTimeout = 100 * time.Millisecond

	failing := &recordingHandler{failFlushes: -1}
	c, err := NewBatchConsumer(broker.js, broker.actions, cfg, failing)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)
	waitFor(t, 5*time.Second, func() bool {
		handled, flushes, _ := failing.snapshot()
		return handled == 4 && flushes >= 2
	}, "failing flushes")

	if err := stop(); err == nil {
		t.Fatal("expected Run() to report the failed final flush")
	}
	if floor, _ := ackFloor(t, broker.js, broker.actions.Name, "redeliver"); floor != 0 {
		t.Fatalf("ack floor = %d, want 0: nothing may be committed ahead of a flush", floor)
	}

	healthy := &recordingHandler{}
	c2, err := NewBatchConsumer(broker.js, broker.actions, cfg, healthy)
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop2 := runConsumer(t, c2)
	waitFor(t, 5*time.Second, func() bool {
		floor, pending := ackFloor(t, broker.js, broker.actions.Name, "redeliver")
		return floor == 4 && pending == 0
	}, "redelivered batch committed")
	if err := stop2(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if handled, _, _ := healthy.snapshot(); handled != 4 {
		t.Errorf("redelivered %d messages, want 4", handled)
	}
}

func TestBatchConsumer_ShutdownInterruptsPoll(t *testing.T) {
	broker := startTestBroker(t)

	cfg := testConsumerConfig("idle")
	cfg.FetchMaxWait = 30 * time.Second
	c, err := NewBatchConsumer(broker.js, broker.actions, cfg, &recordingHandler{})
	if err != nil {
		t.Fatalf("NewBatchConsumer() error: %v", err)
	}
	stop := runConsumer(t, c)
	waitFor(t, 5*time.Second, c.Ready, "consumer bound")
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown took %v, poll was not interrupted", elapsed)
	}
}

func TestNewBatchConsumer_Validation(t *testing.T) {
	broker := startTestBroker(t)
	cfg := testConsumerConfig("v")

	if _, err := NewBatchConsumer(nil, broker.actions, cfg, &recordingHandler{}); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewBatchConsumer(broker.js, broker.actions, cfg, nil); err == nil {
		t.Error("expected error for nil handler")
	}
	bad := cfg
	bad.BatchSize = 0
	if _, err := NewBatchConsumer(broker.js, broker.actions, bad, &recordingHandler{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}
