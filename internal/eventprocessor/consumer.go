// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
)

// Handler applies log records for a BatchConsumer.
//
// Handle is called once per message in delivery order and must be
// idempotent. An error marks the message as poison. Flush makes the side
// effects of every handled message durable; it runs before the batch is
// committed and is retried until it succeeds.
type Handler interface {
	Name() string
	Handle(ctx context.Context, data []byte) error
	Flush(ctx context.Context) error
}

// CommitObserver is implemented by handlers that want to know when a batch
// has been committed.
type CommitObserver interface {
	Committed(ctx context.Context)
}

// ConsumerSource is the subset of jetstream.JetStream a consumer binds with.
type ConsumerSource interface {
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
}

// BatchConsumer drives one Handler from a durable pull consumer.
type BatchConsumer struct {
	source  ConsumerSource
	stream  StreamConfig
	cfg     ConsumerConfig
	handler Handler

	consumer jetstream.Consumer
	ready    atomic.Bool
	retry    *backoff.ExponentialBackOff
}

// NewBatchConsumer validates cfg. The durable consumer is bound by Run.
func NewBatchConsumer(source ConsumerSource, stream StreamConfig, cfg ConsumerConfig, handler Handler) (*BatchConsumer, error) {
	if source == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if err := stream.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = cfg.RetryBackoff
	retry.MaxInterval = cfg.MaxRetryBackoff
	retry.Reset()

	return &BatchConsumer{
		source:  source,
		stream:  stream,
		cfg:     cfg,
		handler: handler,
		retry:   retry,
	}, nil
}

// Name returns the handler name.
func (c *BatchConsumer) Name() string {
	return c.handler.Name()
}

// Ready reports whether the durable consumer is bound.
func (c *BatchConsumer) Ready() bool {
	return c.ready.Load()
}

// Run consumes until ctx is canceled. It returns nil after a clean shutdown
// and an error only when the final flush could not complete.
func (c *BatchConsumer) Run(ctx context.Context) error {
	defer c.ready.Store(false)

	if !c.bind(ctx) {
		return nil
	}

	logging.Info().
		Str("consumer", c.Name()).
		Str("stream", c.stream.Name).
		Str("durable", c.cfg.Durable).
		Msg("Batch consumer started")

	for ctx.Err() == nil {
		msgs, err := c.fetch(ctx)
		if err != nil {
			logging.Warn().Err(err).Str("consumer", c.Name()).Msg("Fetch failed, backing off")
			metrics.RecordConsumerBackoff(c.Name(), "fetch")
			c.sleep(ctx, c.retry.NextBackOff())
			continue
		}
		c.retry.Reset()

		if len(msgs) == 0 {
			continue
		}
		if err := c.processBatch(ctx, msgs); err != nil {
			return err
		}
	}

	logging.Info().Str("consumer", c.Name()).Msg("Batch consumer stopped")
	return nil
}

func (c *BatchConsumer) bind(ctx context.Context) bool {
	for {
		consumer, err := c.source.CreateOrUpdateConsumer(ctx, c.stream.Name, jetstream.ConsumerConfig{
			Durable:       c.cfg.Durable,
			FilterSubject: c.stream.Wildcard(),
			DeliverPolicy: jetstream.DeliverAllPolicy,
			AckPolicy:     jetstream.AckAllPolicy,
			AckWait:       c.cfg.AckWait,
			MaxDeliver:    c.cfg.MaxDeliver,
			MaxAckPending: c.cfg.MaxAckPending,
		})
		if err == nil {
			c.consumer = consumer
			c.ready.Store(true)
			c.retry.Reset()
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		logging.Warn().Err(err).Str("consumer", c.Name()).Msg("Cannot bind durable consumer, backing off")
		metrics.RecordConsumerBackoff(c.Name(), "bind")
		if !c.sleep(ctx, c.retry.NextBackOff()) {
			return false
		}
	}
}

// fetch polls one batch. Cancellation interrupts the wait; messages already
// received are still returned so the caller can finish them.
func (c *BatchConsumer) fetch(ctx context.Context) ([]jetstream.Msg, error) {
	batch, err := c.consumer.Fetch(c.cfg.BatchSize, jetstream.FetchMaxWait(c.cfg.FetchMaxWait))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	msgs := make([]jetstream.Msg, 0, c.cfg.BatchSize)
	for {
		select {
		case msg, ok := <-batch.Messages():
			if !ok {
				if err := batch.Error(); err != nil && !isEmptyFetch(err) && len(msgs) == 0 {
					return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
				}
				return msgs, nil
			}
			msgs = append(msgs, msg)
		case <-ctx.Done():
			return msgs, nil
		}
	}
}

func isEmptyFetch(err error) bool {
	return errors.Is(err, natsgo.ErrTimeout) ||
		errors.Is(err, jetstream.ErrNoMessages) ||
		errors.Is(err, context.DeadlineExceeded)
}

// processBatch handles, flushes and commits msgs. Cancellation of ctx does
// not abandon the batch.
//
// Poison messages are skipped without a negative ack: under AckAll any ack
// on a later sequence commits every earlier one, so the only ack issued is
// the commit of the final message after a successful flush.
func (c *BatchConsumer) processBatch(ctx context.Context, msgs []jetstream.Msg) error {
	work := context.WithoutCancel(ctx)

	handled := 0
	for _, msg := range msgs {
		if err := c.handler.Handle(work, msg.Data()); err != nil {
			c.skip(msg, err)
			continue
		}
		handled++
	}

	start := time.Now()
	if handled > 0 {
		metrics.RecordConsumerMessages(c.Name(), handled)
		if err := c.flush(ctx); err != nil {
			logging.Critical().
				Err(err).
				Str("consumer", c.Name()).
				Int("batch", handled).
				Int("skipped", len(msgs)-handled).
				Msg("Final flush failed, batch left uncommitted")
			return err
		}
	}
	metrics.RecordConsumerBatch(c.Name(), len(msgs), time.Since(start))

	ackCtx, cancel := context.WithTimeout(work, c.cfg.ShutdownTimeout)
	defer cancel()
	err := msgs[len(msgs)-1].DoubleAck(ackCtx)
	metrics.RecordConsumerCommit(c.Name(), err)
	if err != nil {
		// The batch stays durable; redelivery is absorbed by idempotent handlers.
		event := logging.Error()
		if ctx.Err() != nil {
			event = logging.Critical()
		}
		event.Err(err).Str("consumer", c.Name()).Int("batch", len(msgs)).Msg("Commit failed")
		return nil
	}

	if observer, ok := c.handler.(CommitObserver); ok && handled > 0 {
		observer.Committed(work)
	}
	return nil
}

// flush retries Flush with backoff while ctx is live, then makes one last
// bounded attempt after cancellation.
func (c *BatchConsumer) flush(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ShutdownTimeout)
			defer cancel()
			return c.handler.Flush(final)
		}

		err := c.handler.Flush(ctx)
		if err == nil {
			c.retry.Reset()
			return nil
		}

		logging.Warn().Err(err).Str("consumer", c.Name()).Msg("Flush failed, retrying")
		metrics.RecordConsumerBackoff(c.Name(), "flush")
		c.sleep(ctx, c.retry.NextBackOff())
	}
}

// skip records a message the handler rejected. It is committed together
// with the rest of its batch.
func (c *BatchConsumer) skip(msg jetstream.Msg, cause error) {
	reason := SkipReason(cause)
	event := logging.Warn().Err(cause).Str("consumer", c.Name()).Str("subject", msg.Subject()).Str("reason", reason)
	if meta, err := msg.Metadata(); err == nil {
		event = event.Uint64("stream_seq", meta.Sequence.Stream).Uint64("deliveries", meta.NumDelivered)
	}
	event.Msg("Skipping poison message")

	metrics.RecordConsumerSkipped(c.Name(), reason)
}

// sleep waits d or until ctx ends, reporting whether the full wait elapsed.
func (c *BatchConsumer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
