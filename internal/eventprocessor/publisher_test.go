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

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

type fakeWatermillPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
	err    error
	closed bool
}

func (f *fakeWatermillPublisher) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, m := range msgs {
		f.topics = append(f.topics, topic)
		f.msgs = append(f.msgs, m)
	}
	return nil
}

func (f *fakeWatermillPublisher) Close() error {
	f.closed = true
	return nil
}

func newFakePublisher(threshold uint32) (*Publisher, *fakeWatermillPublisher) {
	fake := &fakeWatermillPublisher{}
	cb := DefaultCircuitBreakerConfig("test")
	cb.FailureThreshold = threshold
	cb.Timeout = time.Hour
	return newPublisher(fake, NewCircuitBreaker(cb), DefaultActionStreamConfig(), DefaultSimilarityStreamConfig()), fake
}

func TestPublisher_PublishActionSetsIdempotencyKey(t *testing.T) {
	pub, fake := newFakePublisher(5)
	a := &models.Action{UserID: 3, EventID: 11, Kind: weight.ActionLike, Timestamp: time.Unix(0, 99)}

	if err := pub.PublishAction(context.Background(), a); err != nil {
		t.Fatalf("PublishAction() error: %v", err)
	}
	if len(fake.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.msgs))
	}
	msg := fake.msgs[0]
	if msg.UUID != "3-11-LIKE-99" || msg.Metadata.Get(natsgo.MsgIdHdr) != "3-11-LIKE-99" {
		t.Errorf("message id = %q / %q", msg.UUID, msg.Metadata.Get(natsgo.MsgIdHdr))
	}
	cfg := DefaultActionStreamConfig()
	if want := cfg.Subject(ActionPartition(a, cfg.Partitions)); fake.topics[0] != want {
		t.Errorf("subject = %q, want %q", fake.topics[0], want)
	}
	decoded, err := DecodeAction(msg.Payload)
	if err != nil || decoded.EventID != 11 {
		t.Errorf("payload decode = %+v, %v", decoded, err)
	}
}

func TestPublisher_RejectsInvalidRecords(t *testing.T) {
	pub, fake := newFakePublisher(5)

	if err := pub.PublishAction(context.Background(), &models.Action{UserID: 1, EventID: 1}); !errors.Is(err, weight.ErrUnknownActionKind) {
		t.Errorf("PublishAction(no kind) = %v", err)
	}
	if err := pub.PublishSimilarity(context.Background(), models.Similarity{EventLow: 2, EventHigh: 2}); err == nil {
		t.Error("expected error for self pair")
	}
	if len(fake.msgs) != 0 {
		t.Error("invalid records must not be published")
	}
}

func TestPublisher_CircuitBreakerOpens(t *testing.T) {
	pub, fake := newFakePublisher(2)
	fake.err = errors.New("nats: no responders")
	s := models.NewSimilarity(1, 2, 0.5, time.Now())

	for i := 0; i < 2; i++ {
		if err := pub.PublishSimilarity(context.Background(), s); !errors.Is(err, ErrBrokerUnavailable) {
			t.Fatalf("attempt %d error = %v, want ErrBrokerUnavailable", i, err)
		}
	}

	err := pub.PublishSimilarity(context.Background(), s)
	if !errors.Is(err, ErrBrokerUnavailable) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error with open breaker = %v", err)
	}
	if pub.BreakerState() != gobreaker.StateOpen.String() {
		t.Errorf("BreakerState() = %s, want open", pub.BreakerState())
	}
}

func TestPublisher_ClosedAndCanceled(t *testing.T) {
	pub, fake := newFakePublisher(5)
	s := models.NewSimilarity(1, 2, 0.5, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.PublishSimilarity(ctx, s); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled publish error = %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fake.closed {
		t.Error("underlying publisher not closed")
	}
	if err := pub.PublishSimilarity(context.Background(), s); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("publish after close = %v, want ErrPublisherClosed", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}
