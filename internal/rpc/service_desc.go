// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tomtom215/eventsim/internal/models"
)

const (
	recommendationsServiceName = "eventsim.v1.Recommendations"
	collectorServiceName       = "eventsim.v1.Collector"

	methodGetRecommendations   = "/" + recommendationsServiceName + "/GetRecommendationsForUser"
	methodGetSimilarEvents     = "/" + recommendationsServiceName + "/GetSimilarEvents"
	methodGetInteractionCounts = "/" + recommendationsServiceName + "/GetInteractionCounts"
	methodSubmitAction         = "/" + collectorServiceName + "/SubmitAction"
)

// ScoredEventStream is the server side of a streamed query response.
type ScoredEventStream interface {
	Send(*models.ScoredEvent) error
	Context() context.Context
}

// RecommendationsServer is the server API for eventsim.v1.Recommendations.
type RecommendationsServer interface {
	GetRecommendationsForUser(*RecommendationsRequest, ScoredEventStream) error
	GetSimilarEvents(*SimilarEventsRequest, ScoredEventStream) error
	GetInteractionCounts(*InteractionCountsRequest, ScoredEventStream) error
}

// CollectorServer is the server API for eventsim.v1.Collector.
type CollectorServer interface {
	SubmitAction(context.Context, *SubmitActionRequest) (*SubmitActionResponse, error)
}

// RegisterRecommendationsServer registers srv on s.
func RegisterRecommendationsServer(s grpc.ServiceRegistrar, srv RecommendationsServer) {
	s.RegisterService(&recommendationsServiceDesc, srv)
}

// RegisterCollectorServer registers srv on s.
func RegisterCollectorServer(s grpc.ServiceRegistrar, srv CollectorServer) {
	s.RegisterService(&collectorServiceDesc, srv)
}

type scoredEventServerStream struct {
	grpc.ServerStream
}

func (x *scoredEventServerStream) Send(m *models.ScoredEvent) error {
	return x.ServerStream.SendMsg(m)
}

func getRecommendationsHandler(srv any, stream grpc.ServerStream) error {
	m := new(RecommendationsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RecommendationsServer).GetRecommendationsForUser(m, &scoredEventServerStream{stream})
}

func getSimilarEventsHandler(srv any, stream grpc.ServerStream) error {
	m := new(SimilarEventsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RecommendationsServer).GetSimilarEvents(m, &scoredEventServerStream{stream})
}

func getInteractionCountsHandler(srv any, stream grpc.ServerStream) error {
	m := new(InteractionCountsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RecommendationsServer).GetInteractionCounts(m, &scoredEventServerStream{stream})
}

func submitActionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CollectorServer).SubmitAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: methodSubmitAction,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CollectorServer).SubmitAction(ctx, req.(*SubmitActionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var recommendationsServiceDesc = grpc.ServiceDesc{
	ServiceName: recommendationsServiceName,
	HandlerType: (*RecommendationsServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetRecommendationsForUser",
			Handler:       getRecommendationsHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "GetSimilarEvents",
			Handler:       getSimilarEventsHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "GetInteractionCounts",
			Handler:       getInteractionCountsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "eventsim/v1/recommendations.proto",
}

var collectorServiceDesc = grpc.ServiceDesc{
	ServiceName: collectorServiceName,
	HandlerType: (*CollectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitAction",
			Handler:    submitActionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventsim/v1/collector.proto",
}
