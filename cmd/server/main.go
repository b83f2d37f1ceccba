// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/eventsim/internal/config"
	"github.com/tomtom215/eventsim/internal/logging"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().
		Str("driver", cfg.Database.Driver).
		Bool("nats_embedded", cfg.NATS.Embedded).
		Bool("snapshot", cfg.Aggregator.SnapshotEnabled).
		Str("grpc_addr", cfg.GRPC.Addr).
		Str("http_addr", cfg.Server.Addr()).
		Msg("Starting Eventsim")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	runErr := app.Run(ctx)
	app.Close()

	if runErr != nil {
		logging.Error().Err(runErr).Msg("Supervisor tree stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Eventsim stopped")
}
