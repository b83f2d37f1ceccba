// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
	"github.com/tomtom215/eventsim/internal/models"
)

// Publisher appends actions and similarity updates to their streams.
type Publisher struct {
	publisher    message.Publisher
	breaker      *gobreaker.CircuitBreaker[any]
	actions      StreamConfig
	similarities StreamConfig

	mu     sync.RWMutex
	closed bool
}

// NewPublisher connects a Watermill JetStream publisher. Streams must already
// exist; see StreamInitializer.
func NewPublisher(cfg PublisherConfig, actions, similarities StreamConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("eventsim-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS publisher reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: create watermill publisher: %w", ErrBrokerUnavailable, err)
	}

	return newPublisher(pub, NewCircuitBreaker(cfg.CircuitBreaker), actions, similarities), nil
}

func newPublisher(pub message.Publisher, breaker *gobreaker.CircuitBreaker[any], actions, similarities StreamConfig) *Publisher {
	return &Publisher{
		publisher:    pub,
		breaker:      breaker,
		actions:      actions,
		similarities: similarities,
	}
}

// Publish appends payload to subject with msgID as its deduplication ID.
// Broker failures and an open breaker are reported as ErrBrokerUnavailable.
func (p *Publisher) Publish(ctx context.Context, stream, subject, msgID string, payload []byte) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := message.NewMessage(msgID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, msgID)
	msg.SetContext(ctx)

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(subject, msg)
	})
	metrics.RecordPublish(stream, err)
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit %s: %w", ErrBrokerUnavailable, p.breaker.Name(), err)
	}
	return fmt.Errorf("%w: publish to %s: %w", ErrBrokerUnavailable, subject, err)
}

// PublishAction appends an action to the raw action log.
func (p *Publisher) PublishAction(ctx context.Context, a *models.Action) error {
	payload, err := EncodeAction(a)
	if err != nil {
		return err
	}
	subject := p.actions.Subject(ActionPartition(a, p.actions.Partitions))
	return p.Publish(ctx, p.actions.Name, subject, a.IdempotencyKey(), payload)
}

// PublishSimilarity appends an update to the similarity-update log.
func (p *Publisher) PublishSimilarity(ctx context.Context, s models.Similarity) error {
	payload, err := EncodeSimilarity(s)
	if err != nil {
		return err
	}
	subject := p.similarities.Subject(SimilarityPartition(s, p.similarities.Partitions))
	return p.Publish(ctx, p.similarities.Name, subject, SimilarityMessageID(s), payload)
}

// BreakerState returns the circuit breaker state name.
func (p *Publisher) BreakerState() string {
	return p.breaker.State().String()
}

// Close closes the underlying publisher. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
