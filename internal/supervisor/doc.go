// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package supervisor provides process supervision for Eventsim using suture v4.

The tree organizes long-running services into two layers:

	RootSupervisor ("eventsim")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── ConsumerService "aggregator"       (action log -> similarity log)
	│   ├── ConsumerService "interaction-sink" (action log -> interactions)
	│   └── ConsumerService "similarity-sink"  (similarity log -> similarities)
	└── APISupervisor ("api-layer")
	    ├── GRPCServerService
	    └── HTTPServerService

Each layer counts failures independently. A consumer loop that keeps
failing enters backoff while the servers keep answering queries.

Supervisor events (starts, failures, restarts, backoff) are logged through
sutureslog; pass logging.NewSlogLogger() to route them into zerolog.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)
	if err != nil {
	    return err
	}
	tree.AddPipelineService(services.NewConsumerService(aggregatorConsumer))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

ShutdownTimeout bounds how long the tree waits for a service to return
after cancellation. UnstoppedServiceReport lists services that missed it.
*/
package supervisor
