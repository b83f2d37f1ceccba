// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consumer loops
	ConsumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_total",
			Help: "Messages handled successfully by each consumer",
		},
		[]string{"consumer"},
	)

	ConsumerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_skipped_total",
			Help: "Messages skipped as poison by each consumer",
		},
		[]string{"consumer", "reason"},
	)

	ConsumerBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consumer_batch_size",
			Help:    "Number of messages per flushed batch",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000},
		},
		[]string{"consumer"},
	)

	ConsumerFlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consumer_flush_duration_seconds",
			Help:    "Time spent flushing side effects of a batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"consumer"},
	)

	ConsumerCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_commits_total",
			Help: "Position commits by result",
		},
		[]string{"consumer", "result"},
	)

	ConsumerBackoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_backoffs_total",
			Help: "Times a consumer backed off before retrying",
		},
		[]string{"consumer", "reason"},
	)

	// Aggregator
	AggregatorIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_actions_total",
			Help: "Actions ingested by the aggregator, by outcome",
		},
		[]string{"outcome"}, // "applied", "noop"
	)

	AggregatorUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_similarity_updates_total",
			Help: "Similarity updates emitted by the aggregator",
		},
	)

	AggregatorEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aggregator_state_events",
		Help: "Events with a non-zero weight sum",
	})

	AggregatorUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aggregator_state_users",
		Help: "Users with at least one weighted action",
	})

	AggregatorPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aggregator_state_pairs",
		Help: "Event pairs with a non-zero min-weight sum",
	})

	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregator_snapshot_duration_seconds",
		Help:    "Duration of aggregator state snapshots",
		Buckets: prometheus.DefBuckets,
	})

	SnapshotKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_snapshot_keys_total",
		Help: "State keys written by snapshots",
	})

	SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_snapshot_errors_total",
		Help: "Failed aggregator snapshots",
	})

	// Log publishing
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_messages_total",
			Help: "Messages appended to a log, by result",
		},
		[]string{"topic", "result"},
	)

	// Relational store
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of store statements in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Failed store statements",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Query engine
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Duration of recommendation queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	QueryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_results",
			Help:    "Number of results returned per query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_errors_total",
			Help: "Failed recommendation queries",
		},
		[]string{"operation", "error_type"},
	)

	// Transports
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "gRPC requests by method and status code",
		},
		[]string{"method", "code"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "gRPC request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// ErrorClass maps an error to a low-cardinality label value.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordConsumerMessages counts n successfully handled messages.
func RecordConsumerMessages(consumer string, n int) {
	ConsumerMessages.WithLabelValues(consumer).Add(float64(n))
}

// RecordConsumerSkipped counts one poison message.
func RecordConsumerSkipped(consumer, reason string) {
	ConsumerSkipped.WithLabelValues(consumer, reason).Inc()
}

// RecordConsumerBatch records a flushed batch.
func RecordConsumerBatch(consumer string, size int, flush time.Duration) {
	ConsumerBatchSize.WithLabelValues(consumer).Observe(float64(size))
	ConsumerFlushDuration.WithLabelValues(consumer).Observe(flush.Seconds())
}

// RecordConsumerCommit records a position commit.
func RecordConsumerCommit(consumer string, err error) {
	ConsumerCommits.WithLabelValues(consumer, result(err)).Inc()
}

// RecordConsumerBackoff records a retry delay; reason is e.g. "fetch" or "flush".
func RecordConsumerBackoff(consumer, reason string) {
	ConsumerBackoffs.WithLabelValues(consumer, reason).Inc()
}

// RecordAggregatorIngest records one ingested action.
func RecordAggregatorIngest(emitted int, noop bool) {
	if noop {
		AggregatorIngested.WithLabelValues("noop").Inc()
		return
	}
	AggregatorIngested.WithLabelValues("applied").Inc()
	AggregatorUpdates.Add(float64(emitted))
}

// UpdateAggregatorState sets the state-size gauges.
func UpdateAggregatorState(events, users, pairs int) {
	AggregatorEvents.Set(float64(events))
	AggregatorUsers.Set(float64(users))
	AggregatorPairs.Set(float64(pairs))
}

// RecordSnapshot records one aggregator snapshot.
func RecordSnapshot(duration time.Duration, keys int, err error) {
	SnapshotDuration.Observe(duration.Seconds())
	if err != nil {
		SnapshotErrors.Inc()
		return
	}
	SnapshotKeys.Add(float64(keys))
}

// RecordPublish records one append to topic. Topic is the stream, not the
// partition subject.
func RecordPublish(topic string, err error) {
	PublishTotal.WithLabelValues(topic, result(err)).Inc()
}

// RecordDBQuery records one store statement.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, ErrorClass(err)).Inc()
	}
}

// RecordQuery records one query engine call.
func RecordQuery(operation string, duration time.Duration, results int, err error) {
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(operation, ErrorClass(err)).Inc()
		return
	}
	QueryResults.WithLabelValues(operation).Observe(float64(results))
}

// RecordRPC records one gRPC call; code is the status code name.
func RecordRPC(method, code string, duration time.Duration) {
	RPCRequests.WithLabelValues(method, code).Inc()
	RPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SinkRows counts rows written by the durable sinks.
var SinkRows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sink_rows_written_total",
		Help: "Rows upserted into the durable store by each sink",
	},
	[]string{"sink"},
)

// RecordSinkWrite records a flushed sink batch of rows.
func RecordSinkWrite(sink string, rows int) {
	SinkRows.WithLabelValues(sink).Add(float64(rows))
}
