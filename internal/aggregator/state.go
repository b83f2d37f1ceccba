// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package aggregator

// StateStore holds the aggregator's incremental statistics.
// Implementations are accessed from a single goroutine.
type StateStore interface {
	// Weight returns the current weight of user on event, or 0.
	Weight(eventID, userID int64) float64

	// SetWeight records a new weight for user on event. Callers only ever
	// raise a weight.
	SetWeight(eventID, userID int64, w float64)

	// WeightSum returns the sum of all user weights on event.
	WeightSum(eventID int64) float64

	// AddWeightSum adds delta to the weight sum of event.
	AddWeightSum(eventID int64, delta float64)

	// PairMinSum returns the min-weight sum of the canonical pair (low, high).
	PairMinSum(low, high int64) float64

	// AddPairMinSum adds delta to the min-weight sum of the canonical pair.
	AddPairMinSum(low, high int64, delta float64)

	// UserEvents returns the events user has a positive weight on, in the
	// order they were first seen.
	UserEvents(userID int64) []int64

	// Stats reports the current cardinalities.
	Stats() StateStats
}

// StateStats are the cardinalities of a StateStore.
type StateStats struct {
	Events int
	Users  int
	Pairs  int
}

type pairKey struct {
	low, high int64
}

// MemoryStore is a map-backed StateStore with a per-user event index.
type MemoryStore struct {
	eventUserWeight map[int64]map[int64]float64
	eventWeightSum  map[int64]float64
	pairMinSum      map[pairKey]float64
	userEvents      map[int64][]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		eventUserWeight: make(map[int64]map[int64]float64),
		eventWeightSum:  make(map[int64]float64),
		pairMinSum:      make(map[pairKey]float64),
		userEvents:      make(map[int64][]int64),
	}
}

// Weight implements StateStore.
func (m *MemoryStore) Weight(eventID, userID int64) float64 {
	return m.eventUserWeight[eventID][userID]
}

// SetWeight implements StateStore.
func (m *MemoryStore) SetWeight(eventID, userID int64, w float64) {
	users, ok := m.eventUserWeight[eventID]
	if !ok {
		users = make(map[int64]float64)
		m.eventUserWeight[eventID] = users
	}
	if _, seen := users[userID]; !seen {
		m.userEvents[userID] = append(m.userEvents[userID], eventID)
	}
	users[userID] = w
}

// WeightSum implements StateStore.
func (m *MemoryStore) WeightSum(eventID int64) float64 {
	return m.eventWeightSum[eventID]
}

// AddWeightSum implements StateStore.
func (m *MemoryStore) AddWeightSum(eventID int64, delta float64) {
	m.eventWeightSum[eventID] += delta
}

// PairMinSum implements StateStore.
func (m *MemoryStore) PairMinSum(low, high int64) float64 {
	return m.pairMinSum[pairKey{low, high}]
}

// AddPairMinSum implements StateStore.
func (m *MemoryStore) AddPairMinSum(low, high int64, delta float64) {
	m.pairMinSum[pairKey{low, high}] += delta
}

// UserEvents implements StateStore. The returned slice must not be modified.
func (m *MemoryStore) UserEvents(userID int64) []int64 {
	return m.userEvents[userID]
}

// Stats implements StateStore.
func (m *MemoryStore) Stats() StateStats {
	return StateStats{
		Events: len(m.eventUserWeight),
		Users:  len(m.userEvents),
		Pairs:  len(m.pairMinSum),
	}
}
