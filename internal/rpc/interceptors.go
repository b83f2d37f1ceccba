// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package rpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/eventsim/internal/logging"
	"github.com/tomtom215/eventsim/internal/metrics"
)

// wrappedStream overrides the stream context.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// incomingCorrelationID returns the caller's correlation id, or a new one.
func incomingCorrelationID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(logging.CorrelationIDHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return logging.GenerateCorrelationID()
}

func correlationUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := incomingCorrelationID(ctx)
	_ = grpc.SetHeader(ctx, metadata.Pairs(logging.CorrelationIDHeader, id))
	return handler(logging.ContextWithCorrelationID(ctx, id), req)
}

func correlationStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	id := incomingCorrelationID(ss.Context())
	_ = ss.SetHeader(metadata.Pairs(logging.CorrelationIDHeader, id))
	ctx := logging.ContextWithCorrelationID(ss.Context(), id)
	return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
}

func observe(ctx context.Context, method string, start time.Time, err error) {
	code := status.Code(err)
	elapsed := time.Since(start)
	metrics.RecordRPC(method, code.String(), elapsed)

	switch code {
	case codes.OK:
		logging.CtxDebug(ctx).Str("method", method).Dur("duration", elapsed).Msg("RPC served")
	case codes.InvalidArgument, codes.Canceled, codes.ResourceExhausted:
		logging.CtxDebug(ctx).Str("method", method).Str("code", code.String()).Err(err).Msg("RPC rejected")
	default:
		logging.CtxWarn(ctx).Str("method", method).Str("code", code.String()).Err(err).Dur("duration", elapsed).Msg("RPC failed")
	}
}

func observeUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	observe(ctx, info.FullMethod, start, err)
	return resp, err
}

func observeStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	observe(ss.Context(), info.FullMethod, start, err)
	return err
}

// rateLimiter is a token bucket shared by every method. A nil limiter
// admits everything.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(limit float64, burst int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
}

func (l *rateLimiter) allow(method string) error {
	if l.limiter == nil || l.limiter.Allow() {
		return nil
	}
	return status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", method)
}

func (l *rateLimiter) unary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if err := l.allow(info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (l *rateLimiter) stream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := l.allow(info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

func recovered(ctx context.Context, method string, p any) error {
	logging.CtxErr(ctx, fmt.Errorf("panic: %v", p)).
		Str("method", method).
		Bytes("stack", debug.Stack()).
		Msg("RPC handler panicked")
	return status.Error(codes.Internal, "internal error")
}

func recoveryUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(ctx, info.FullMethod, p)
		}
	}()
	return handler(ctx, req)
}

func recoveryStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(ss.Context(), info.FullMethod, p)
		}
	}()
	return handler(srv, ss)
}
