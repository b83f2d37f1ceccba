// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/tomtom215/eventsim/internal/logging"
)

// GRPCServer matches the *grpc.Server lifecycle methods.
type GRPCServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
	Stop()
}

// GRPCServerService runs the gRPC server under supervision. On
// cancellation it drains in-flight streams with GracefulStop and forces
// Stop once shutdownTimeout has passed.
type GRPCServerService struct {
	server          GRPCServer
	addr            string
	shutdownTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
}

// NewGRPCServerService listens on addr when served. A non-positive
// shutdownTimeout means 10s.
func NewGRPCServerService(server GRPCServer, addr string, shutdownTimeout time.Duration) *GRPCServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &GRPCServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Addr returns the bound listener address, or nil before Serve has
// listened.
func (g *GRPCServerService) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Serve implements suture.Service.
func (g *GRPCServerService) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", g.addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", g.addr, err)
	}
	g.mu.Lock()
	g.listener = lis
	g.mu.Unlock()

	logging.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		stopped := make(chan struct{})
		go func() {
			g.server.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(g.shutdownTimeout):
			logging.Warn().Dur("timeout", g.shutdownTimeout).Msg("gRPC graceful stop timed out, forcing stop")
			g.server.Stop()
			<-stopped
		}

		<-errCh
		logging.Info().Msg("gRPC server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (g *GRPCServerService) String() string {
	return "grpc-server"
}
