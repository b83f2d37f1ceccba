// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

/*
Package rpc exposes the query engine and the collector over gRPC.

Two services are registered:

	eventsim.v1.Recommendations
	    GetRecommendationsForUser(RecommendationsRequest) returns (stream ScoredEvent)
	    GetSimilarEvents(SimilarEventsRequest)            returns (stream ScoredEvent)
	    GetInteractionCounts(InteractionCountsRequest)    returns (stream ScoredEvent)

	eventsim.v1.Collector
	    SubmitAction(SubmitActionRequest) returns (SubmitActionResponse)

Messages are JSON encoded with the "json" codec registered by this package;
clients select it with grpc.CallContentSubtype(CodecName), which Dial does.

Every call passes through the interceptor chain: correlation id, logging
and metrics, rate limiting, then panic recovery. Errors leave the package
as status errors:

	query.ErrInvalidArgument, models.ErrInvalidAction   InvalidArgument
	context.DeadlineExceeded                            DeadlineExceeded
	eventprocessor.ErrBrokerUnavailable, store errors   Unavailable
	anything else                                       Internal
*/
package rpc
