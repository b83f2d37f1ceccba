// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/eventsim/internal/config"
	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/rpc"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

// loadTestConfig writes a config file for a self-contained instance:
// embedded broker on a random port, in-memory streams and store.
func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	consumer := "{batch_size: 10, fetch_max_wait: 100ms, retry_backoff: 50ms, max_retry_backoff: 500ms}"
	content := fmt.Sprintf(`
nats:
  embedded: true
  port: -1
  store_dir: %s
  max_memory: 67108864
  max_store: 268435456
streams:
  actions: {partitions: 2, max_bytes: 16777216, storage: memory}
  similarities: {partitions: 2, max_bytes: 16777216, storage: memory}
consumer:
  aggregator: %s
  interactions: %s
  similarities: %s
database:
  path: ":memory:"
grpc:
  addr: "127.0.0.1:0"
server:
  host: 127.0.0.1
  port: %d
logging:
  level: error
supervisor:
  failure_backoff: 100ms
  shutdown_timeout: 10s
`, filepath.Join(dir, "nats"), consumer, consumer, consumer, freePort(t))

	path := filepath.Join(dir, "eventsim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.ConfigPathEnvVar, path)

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	return cfg
}

func contains(events []models.ScoredEvent, id int64) bool {
	for _, e := range events {
		if e.EventID == id {
			return true
		}
	}
	return false
}

func TestAppEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded broker")
	}
	cfg := loadTestConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-runErr:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(15 * time.Second):
			t.Error("Run did not return after cancel")
		}
		a.Close()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for a.grpc.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.grpc.Addr() == nil {
		t.Fatal("gRPC server did not start")
	}

	conn, err := rpc.Dial(a.grpc.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	collector := rpc.NewCollectorClient(conn, time.Second)
	recommendations := rpc.NewRecommendationsClient(conn)

	submit := []rpc.SubmitActionRequest{
		{UserID: 1, EventID: 10, ActionKind: "LIKE"},
		{UserID: 2, EventID: 10, ActionKind: "LIKE"},
		{UserID: 2, EventID: 20, ActionKind: "REGISTER"},
	}
	for i := range submit {
		reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
		resp, err := collector.SubmitAction(reqCtx, &submit[i])
		reqCancel()
		if err != nil {
			t.Fatalf("SubmitAction(%+v) error = %v", submit[i], err)
		}
		if !resp.Accepted {
			t.Fatalf("SubmitAction(%+v) not accepted", submit[i])
		}
	}

	// User 1 shares event 10 with user 2, so event 20 becomes a candidate
	// once both sinks have committed.
	var recs []models.ScoredEvent
	deadline = time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
		recs, err = recommendations.GetRecommendationsForUser(reqCtx, 1, 10)
		reqCancel()
		if err == nil && contains(recs, 20) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !contains(recs, 20) {
		t.Fatalf("recommendations for user 1 = %+v, want event 20", recs)
	}
	if contains(recs, 10) {
		t.Errorf("recommendations for user 1 include already seen event 10: %+v", recs)
	}

	reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
	counts, err := recommendations.GetInteractionCounts(reqCtx, []int64{10, 20})
	reqCancel()
	if err != nil {
		t.Fatalf("GetInteractionCounts() error = %v", err)
	}
	if len(counts) != 2 {
		t.Errorf("GetInteractionCounts() = %+v, want 2 events", counts)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/readyz", cfg.Server.Addr()))
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /readyz status = %d, want 200", resp.StatusCode)
	}
}

func TestNewAppClosesOnFailure(t *testing.T) {
	cfg := loadTestConfig(t)

	// A regular file where the snapshot directory should be fails after the
	// store and the embedded broker are already up.
	blocker := filepath.Join(t.TempDir(), "snapshot")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg.Aggregator.SnapshotEnabled = true
	cfg.Aggregator.SnapshotPath = blocker

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := newApp(ctx, cfg); err == nil {
		t.Fatal("newApp() should fail when the snapshot cannot be opened")
	}

	// The failed instance shut its broker down, so a second one can reuse
	// the same store directory.
	cfg.Aggregator.SnapshotEnabled = false
	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("newApp() after cleanup error = %v", err)
	}
	a.Close()
}
