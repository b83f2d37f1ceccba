// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package aggregator

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

const epsilon = 1e-9

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := New(weight.DefaultPolicy(), NewMemoryStore())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return agg
}

func act(user, event int64, kind weight.ActionKind) models.Action {
	return models.Action{UserID: user, EventID: event, Kind: kind, Timestamp: baseTime}
}

func mustIngest(t *testing.T, agg *Aggregator, a models.Action) []models.Similarity {
	t.Helper()
	updates, err := agg.Ingest(a)
	if err != nil {
		t.Fatalf("Ingest(%+v) error: %v", a, err)
	}
	return updates
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	if _, err := New(weight.Policy{View: 1, Register: 0.5, Like: 2}, nil); err == nil {
		t.Error("expected error for unordered policy")
	}
}

func TestIngest_FirstActionEmitsNothing(t *testing.T) {
	agg := newTestAggregator(t)

	updates := mustIngest(t, agg, act(1, 100, weight.ActionView))
	if len(updates) != 0 {
		t.Errorf("expected no updates, got %v", updates)
	}
	if got := agg.State().WeightSum(100); !almostEqual(got, 0.4) {
		t.Errorf("WeightSum(100) = %v, want 0.4", got)
	}
}

func TestIngest_ScenarioTwoUsersTwoEvents(t *testing.T) {
	const (
		userU  = 1
		userV  = 2
		eventA = 10
		eventB = 20
	)
	agg := newTestAggregator(t)

	mustIngest(t, agg, act(userV, eventA, weight.ActionLike))
	mustIngest(t, agg, act(userU, eventA, weight.ActionView))
	updates := mustIngest(t, agg, act(userU, eventB, weight.ActionRegister))

	if got := agg.State().WeightSum(eventA); !almostEqual(got, 1.4) {
		t.Errorf("WeightSum(A) = %v, want 1.4", got)
	}
	if got := agg.State().WeightSum(eventB); !almostEqual(got, 0.8) {
		t.Errorf("WeightSum(B) = %v, want 0.8", got)
	}
	if got := agg.State().PairMinSum(eventA, eventB); !almostEqual(got, 0.4) {
		t.Errorf("PairMinSum(A,B) = %v, want 0.4", got)
	}

	want := 0.4 / math.Sqrt(1.4*0.8)
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.EventLow != eventA || u.EventHigh != eventB {
		t.Errorf("update pair = (%d, %d), want (%d, %d)", u.EventLow, u.EventHigh, eventA, eventB)
	}
	if !almostEqual(u.Score, want) {
		t.Errorf("score = %v, want %v", u.Score, want)
	}
	if math.Abs(u.Score-0.379) > 0.001 {
		t.Errorf("score = %v, want ~0.379", u.Score)
	}
	if !u.Timestamp.Equal(baseTime) {
		t.Errorf("timestamp = %v, want action timestamp %v", u.Timestamp, baseTime)
	}
}

func TestIngest_WeakerOrEqualActionIsNoop(t *testing.T) {
	agg := newTestAggregator(t)

	mustIngest(t, agg, act(1, 10, weight.ActionView))
	mustIngest(t, agg, act(1, 20, weight.ActionView))
	mustIngest(t, agg, act(1, 10, weight.ActionLike))

	before := snapshotState(agg, []int64{10, 20}, []int64{1})

	for _, kind := range []weight.ActionKind{weight.ActionView, weight.ActionRegister, weight.ActionLike} {
		if updates := mustIngest(t, agg, act(1, 10, kind)); updates != nil {
			t.Errorf("replay of %s emitted %v", kind, updates)
		}
	}

	after := snapshotState(agg, []int64{10, 20}, []int64{1})
	if before != after {
		t.Errorf("state changed on replay:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := agg.State().Weight(10, 1); got != 1.0 {
		t.Errorf("Weight(10,1) = %v, want 1.0", got)
	}
}

func TestIngest_UpgradeRecomputesExistingPairs(t *testing.T) {
	agg := newTestAggregator(t)

	mustIngest(t, agg, act(1, 10, weight.ActionView))
	updates := mustIngest(t, agg, act(1, 20, weight.ActionView))
	if len(updates) != 1 || !almostEqual(updates[0].Score, 1.0) {
		t.Fatalf("expected a single score of 1.0, got %v", updates)
	}

	// The min-weight sum is unchanged (min(1.0, 0.4) == min(0.4, 0.4)) but
	// the weight sum of event 10 grew, so the pair is re-emitted lower.
	updates = mustIngest(t, agg, act(1, 10, weight.ActionLike))
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	want := 0.4 / math.Sqrt(1.0*0.4)
	if !almostEqual(updates[0].Score, want) {
		t.Errorf("score = %v, want %v", updates[0].Score, want)
	}
	if got := agg.State().PairMinSum(10, 20); !almostEqual(got, 0.4) {
		t.Errorf("PairMinSum = %v, want 0.4", got)
	}
}

func TestIngest_EmitsCanonicalPairs(t *testing.T) {
	agg := newTestAggregator(t)

	mustIngest(t, agg, act(1, 50, weight.ActionLike))
	mustIngest(t, agg, act(1, 30, weight.ActionLike))
	updates := mustIngest(t, agg, act(1, 10, weight.ActionLike))

	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	for _, u := range updates {
		if u.EventLow >= u.EventHigh {
			t.Errorf("pair not canonical: %+v", u)
		}
		if _, ok := u.Other(10); !ok {
			t.Errorf("update %+v does not involve the ingested event", u)
		}
	}
	// Updates follow the order the user first touched the other events.
	if updates[0].EventHigh != 50 || updates[1].EventHigh != 30 {
		t.Errorf("unexpected update order: %+v", updates)
	}
}

func TestIngest_UnknownKindLeavesStateUntouched(t *testing.T) {
	agg := newTestAggregator(t)

	_, err := agg.Ingest(models.Action{UserID: 1, EventID: 10, Kind: weight.ActionKind(9)})
	if !errors.Is(err, weight.ErrUnknownActionKind) {
		t.Fatalf("error = %v, want ErrUnknownActionKind", err)
	}
	if stats := agg.State().Stats(); stats != (StateStats{}) {
		t.Errorf("state modified: %+v", stats)
	}
}

func TestScore_UndefinedPairsAreZero(t *testing.T) {
	agg := newTestAggregator(t)
	mustIngest(t, agg, act(1, 10, weight.ActionView))
	mustIngest(t, agg, act(2, 20, weight.ActionView))

	if got := agg.Score(10, 20); got != 0 {
		t.Errorf("Score of pair without shared users = %v, want 0", got)
	}
	if got := agg.Score(10, 99); got != 0 {
		t.Errorf("Score with unknown event = %v, want 0", got)
	}
}

func TestIngest_FinalStateIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var actions []models.Action
	for i := 0; i < 300; i++ {
		actions = append(actions, models.Action{
			UserID:    int64(rng.Intn(15) + 1),
			EventID:   int64(rng.Intn(12) + 1),
			Kind:      weight.Kinds[rng.Intn(len(weight.Kinds))],
			Timestamp: baseTime.Add(time.Duration(i) * time.Second),
		})
	}

	reference := newTestAggregator(t)
	for _, a := range actions {
		mustIngest(t, reference, a)
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := append([]models.Action(nil), actions...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		agg := newTestAggregator(t)
		for _, a := range shuffled {
			mustIngest(t, agg, a)
		}
		// Duplicate delivery of the whole log must not move anything.
		for _, a := range shuffled {
			mustIngest(t, agg, a)
		}

		for e1 := int64(1); e1 <= 12; e1++ {
			if !almostEqual(agg.State().WeightSum(e1), reference.State().WeightSum(e1)) {
				t.Fatalf("trial %d: WeightSum(%d) = %v, want %v", trial, e1,
					agg.State().WeightSum(e1), reference.State().WeightSum(e1))
			}
			for e2 := e1 + 1; e2 <= 12; e2++ {
				got, want := agg.Score(e1, e2), reference.Score(e1, e2)
				if math.Abs(got-want) > 1e-6 {
					t.Fatalf("trial %d: Score(%d,%d) = %v, want %v", trial, e1, e2, got, want)
				}
				if got < 0 || got > 1 {
					t.Fatalf("trial %d: Score(%d,%d) = %v out of (0,1]", trial, e1, e2, got)
				}
			}
		}
	}
}

type stateSnapshot struct {
	sum10, sum20 float64
	pair         float64
	weight10     float64
	weight20     float64
	stats        StateStats
}

func snapshotState(agg *Aggregator, events []int64, users []int64) stateSnapshot {
	s := agg.State()
	return stateSnapshot{
		sum10:    s.WeightSum(events[0]),
		sum20:    s.WeightSum(events[1]),
		pair:     s.PairMinSum(events[0], events[1]),
		weight10: s.Weight(events[0], users[0]),
		weight20: s.Weight(events[1], users[0]),
		stats:    s.Stats(),
	}
}
