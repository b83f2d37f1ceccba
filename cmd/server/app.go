// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/eventsim/internal/aggregator"
	"github.com/tomtom215/eventsim/internal/api"
	"github.com/tomtom215/eventsim/internal/collector"
	"github.com/tomtom215/eventsim/internal/config"
	"github.com/tomtom215/eventsim/internal/eventprocessor"
	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/query"
	"github.com/tomtom215/eventsim/internal/rpc"
	"github.com/tomtom215/eventsim/internal/sink"
	"github.com/tomtom215/eventsim/internal/store"
	"github.com/tomtom215/eventsim/internal/supervisor"
	"github.com/tomtom215/eventsim/internal/supervisor/services"
)

// app owns every long-lived component. Components are closed in reverse
// order of creation by Close.
type app struct {
	cfg *config.Config

	store     *store.Store
	server    *eventprocessor.EmbeddedServer
	nc        *natsgo.Conn
	streams   *eventprocessor.StreamInitializer
	publisher *eventprocessor.Publisher
	snapshot  *aggregator.SnapshotStore

	engine    *query.Engine
	collector *collector.Collector

	tree *supervisor.SupervisorTree
	grpc *services.GRPCServerService
}

// newApp builds the pipeline and the servers without starting the tree.
// On error everything opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	if err := a.initStore(ctx); err != nil {
		return err
	}
	js, err := a.initNATS(ctx)
	if err != nil {
		return err
	}
	if err := a.initPublisher(); err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), a.cfg.Supervisor)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	a.tree = tree

	if err := a.initPipeline(js); err != nil {
		return err
	}
	return a.initServing()
}

func (a *app) initStore(ctx context.Context) error {
	s, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = s
	return nil
}

// initNATS starts the embedded server when configured, connects, and
// makes sure both streams exist.
func (a *app) initNATS(ctx context.Context) (jetstream.JetStream, error) {
	url := a.cfg.NATS.URL
	if a.cfg.NATS.Embedded {
		serverCfg := a.cfg.NATS.ServerConfig()
		srv, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		a.server = srv
		url = srv.ClientURL()
	} else {
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	nc, err := natsgo.Connect(url,
		natsgo.Name("eventsim-consumers"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(a.cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(a.cfg.NATS.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to NATS: %w", eventprocessor.ErrBrokerUnavailable, err)
	}
	a.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streams, err := eventprocessor.NewStreamInitializer(js, a.cfg.Streams.Actions, a.cfg.Streams.Similarities)
	if err != nil {
		return nil, err
	}
	if err := streams.EnsureStreams(ctx); err != nil {
		return nil, err
	}
	a.streams = streams
	return js, nil
}

func (a *app) initPublisher() error {
	url := a.cfg.NATS.URL
	if a.server != nil {
		url = a.server.ClientURL()
	}
	pub, err := eventprocessor.NewPublisher(
		a.cfg.NATS.PublisherConfig(url),
		a.cfg.Streams.Actions,
		a.cfg.Streams.Similarities,
		logging.NewWatermillLogger(),
	)
	if err != nil {
		return err
	}
	a.publisher = pub
	return nil
}

// initPipeline wires the three consumer loops into the pipeline layer.
func (a *app) initPipeline(js jetstream.JetStream) error {
	var state aggregator.StateStore = aggregator.NewMemoryStore()
	if a.cfg.Aggregator.SnapshotEnabled {
		snapshot, err := aggregator.OpenSnapshotStore(a.cfg.Aggregator.Snapshot())
		if err != nil {
			return fmt.Errorf("open aggregator snapshot: %w", err)
		}
		a.snapshot = snapshot
		state = snapshot
	} else {
		logging.Warn().Msg("Aggregator snapshot disabled, similarity state starts empty on every restart")
	}

	agg, err := aggregator.New(a.cfg.Weights, state)
	if err != nil {
		return err
	}
	aggHandler, err := aggregator.NewHandler(agg, a.publisher, a.snapshot)
	if err != nil {
		return err
	}
	interactions, err := sink.NewInteractionSink(a.store, a.cfg.Weights)
	if err != nil {
		return err
	}
	similarities, err := sink.NewSimilaritySink(a.store)
	if err != nil {
		return err
	}

	loops := []struct {
		stream  eventprocessor.StreamConfig
		cfg     eventprocessor.ConsumerConfig
		handler eventprocessor.Handler
		opts    []services.ConsumerOption
	}{
		{a.cfg.Streams.Actions, a.cfg.Consumer.Aggregator, aggHandler, []services.ConsumerOption{services.WithStopHook(aggHandler.SaveSnapshot)}},
		{a.cfg.Streams.Actions, a.cfg.Consumer.Interactions, interactions, nil},
		{a.cfg.Streams.Similarities, a.cfg.Consumer.Similarities, similarities, nil},
	}
	for _, loop := range loops {
		consumer, err := eventprocessor.NewBatchConsumer(js, loop.stream, loop.cfg, loop.handler)
		if err != nil {
			return fmt.Errorf("create %s consumer: %w", loop.handler.Name(), err)
		}
		a.tree.AddPipelineService(services.NewConsumerService(consumer, loop.opts...))
	}
	return nil
}

// initServing wires the query engine and collector behind gRPC and HTTP.
func (a *app) initServing() error {
	engine, err := query.NewEngine(a.store, a.cfg.GRPC.Query())
	if err != nil {
		return err
	}
	a.engine = engine

	coll, err := collector.New(a.publisher)
	if err != nil {
		return err
	}
	a.collector = coll

	svc, err := rpc.NewService(engine, coll)
	if err != nil {
		return err
	}
	grpcCfg := a.cfg.GRPC.Server()
	a.grpc = services.NewGRPCServerService(rpc.NewGRPCServer(grpcCfg, svc), grpcCfg.Addr, grpcCfg.ShutdownTimeout)
	a.tree.AddAPIService(a.grpc)

	handler, err := api.NewHandler(engine, coll, a.readinessChecks()...)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, a.cfg.Server),
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}
	a.tree.AddAPIService(services.NewHTTPServerService(httpServer, a.cfg.Server.ShutdownTimeout))
	return nil
}

func (a *app) readinessChecks() []api.ReadinessCheck {
	return []api.ReadinessCheck{
		{Name: "store", Check: a.store.Ping},
		{Name: "nats", Check: func(context.Context) error {
			if status := a.nc.Status(); status != natsgo.CONNECTED {
				return fmt.Errorf("%w: connection %s", eventprocessor.ErrBrokerUnavailable, status)
			}
			return nil
		}},
		{Name: "streams", Check: a.streams.Healthy},
	}
}

// Run serves the supervisor tree until ctx is canceled.
func (a *app) Run(ctx context.Context) error {
	err := <-a.tree.ServeBackground(ctx)

	if report, rerr := a.tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases every component. Safe to call on a partially built app.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			logging.Warn().Err(err).Msg("Error draining NATS connection")
			a.nc.Close()
		}
	}
	if a.snapshot != nil {
		if err := a.snapshot.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing aggregator snapshot")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}
