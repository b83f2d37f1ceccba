// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package aggregator

import (
	"fmt"
	"math"

	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

// Aggregator turns actions into similarity updates.
type Aggregator struct {
	policy weight.Policy
	state  StateStore
}

// New creates an Aggregator. A nil state uses a fresh MemoryStore.
func New(policy weight.Policy, state StateStore) (*Aggregator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight policy: %w", err)
	}
	if state == nil {
		state = NewMemoryStore()
	}
	return &Aggregator{policy: policy, state: state}, nil
}

// State returns the underlying store.
func (a *Aggregator) State() StateStore {
	return a.state
}

// Ingest applies one action and returns a similarity update for every pair
// whose score changed and is positive. An action that does not raise the
// user's weight on the event is a no-op and returns nil.
func (a *Aggregator) Ingest(action models.Action) ([]models.Similarity, error) {
	newWeight, err := a.policy.Strength(action.Kind)
	if err != nil {
		return nil, err
	}

	eventID, userID := action.EventID, action.UserID
	oldWeight := a.state.Weight(eventID, userID)
	if newWeight <= oldWeight {
		return nil, nil
	}

	a.state.SetWeight(eventID, userID, newWeight)
	a.state.AddWeightSum(eventID, newWeight-oldWeight)

	var updates []models.Similarity
	for _, other := range a.state.UserEvents(userID) {
		if other == eventID {
			continue
		}
		otherWeight := a.state.Weight(other, userID)
		low, high := models.CanonicalPair(eventID, other)

		delta := math.Min(newWeight, otherWeight) - math.Min(oldWeight, otherWeight)
		if delta != 0 {
			a.state.AddPairMinSum(low, high, delta)
		}

		score := a.Score(low, high)
		if score > 0 {
			updates = append(updates, models.NewSimilarity(eventID, other, score, action.Timestamp))
		}
	}

	return updates, nil
}

// Score computes the current similarity of a pair in either order.
// It returns 0 when either weight sum or the min-weight sum is not positive.
func (a *Aggregator) Score(e1, e2 int64) float64 {
	low, high := models.CanonicalPair(e1, e2)
	minSum := a.state.PairMinSum(low, high)
	if minSum <= 0 {
		return 0
	}
	sumLow := a.state.WeightSum(low)
	sumHigh := a.state.WeightSum(high)
	if sumLow <= 0 || sumHigh <= 0 {
		return 0
	}
	// Accumulated float error can push an identical-pair score past 1.
	return math.Min(minSum/math.Sqrt(sumLow*sumHigh), 1)
}
