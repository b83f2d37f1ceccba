// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package aggregator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/eventsim/internal/logging"
)

// ErrSnapshotClosed is returned when saving to a closed SnapshotStore.
var ErrSnapshotClosed = errors.New("snapshot store is closed")

// Key prefixes. Ids are encoded big-endian so iteration is ordered by id.
const (
	prefixWeight byte = 'w' // w | event | user -> weight
	prefixSum    byte = 's' // s | event        -> weight sum
	prefixPair   byte = 'p' // p | low | high   -> min-weight sum
)

var metaKey = []byte("meta:snapshot")

// SnapshotConfig configures the BadgerDB-backed state snapshot.
type SnapshotConfig struct {
	// Path is the BadgerDB directory.
	Path string

	// Interval is the minimum time between two snapshots.
	// Default: 30s
	Interval time.Duration

	// SyncWrites fsyncs every snapshot.
	// Default: true
	SyncWrites bool

	// Compression enables Snappy compression of value logs.
	Compression bool

	// CloseTimeout bounds how long Close waits for BadgerDB.
	// Default: 30s
	CloseTimeout time.Duration
}

// DefaultSnapshotConfig returns production defaults for path.
func DefaultSnapshotConfig(path string) SnapshotConfig {
	return SnapshotConfig{
		Path:         path,
		Interval:     30 * time.Second,
		SyncWrites:   true,
		Compression:  true,
		CloseTimeout: 30 * time.Second,
	}
}

// SnapshotMeta describes the last saved snapshot.
type SnapshotMeta struct {
	SavedAt time.Time `json:"saved_at"`
	Keys    int       `json:"keys"`
	Events  int       `json:"events"`
	Users   int       `json:"users"`
	Pairs   int       `json:"pairs"`
}

type weightKey struct {
	event, user int64
}

// SnapshotStore is a MemoryStore whose changes are persisted to BadgerDB
// on Save. Only keys touched since the previous Save are written.
type SnapshotStore struct {
	*MemoryStore

	db     *badger.DB
	config SnapshotConfig

	dirtyWeights map[weightKey]struct{}
	dirtySums    map[int64]struct{}
	dirtyPairs   map[pairKey]struct{}

	mu     sync.Mutex
	closed bool
}

// OpenSnapshotStore opens (or creates) the snapshot at cfg.Path and loads
// any previously saved state into memory.
func OpenSnapshotStore(cfg SnapshotConfig) (*SnapshotStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("snapshot path required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &SnapshotStore{
		MemoryStore:  NewMemoryStore(),
		db:           db,
		config:       cfg,
		dirtyWeights: make(map[weightKey]struct{}),
		dirtySums:    make(map[int64]struct{}),
		dirtyPairs:   make(map[pairKey]struct{}),
	}

	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	stats := s.Stats()
	logging.Info().
		Str("path", cfg.Path).
		Int("events", stats.Events).
		Int("users", stats.Users).
		Int("pairs", stats.Pairs).
		Msg("Aggregator snapshot loaded")

	return s, nil
}

// SetWeight implements StateStore.
func (s *SnapshotStore) SetWeight(eventID, userID int64, w float64) {
	s.MemoryStore.SetWeight(eventID, userID, w)
	s.dirtyWeights[weightKey{eventID, userID}] = struct{}{}
}

// AddWeightSum implements StateStore.
func (s *SnapshotStore) AddWeightSum(eventID int64, delta float64) {
	s.MemoryStore.AddWeightSum(eventID, delta)
	s.dirtySums[eventID] = struct{}{}
}

// AddPairMinSum implements StateStore.
func (s *SnapshotStore) AddPairMinSum(low, high int64, delta float64) {
	s.MemoryStore.AddPairMinSum(low, high, delta)
	s.dirtyPairs[pairKey{low, high}] = struct{}{}
}

// Interval returns the configured minimum time between snapshots.
func (s *SnapshotStore) Interval() time.Duration {
	return s.config.Interval
}

// Dirty returns the number of keys waiting for the next Save.
func (s *SnapshotStore) Dirty() int {
	return len(s.dirtyWeights) + len(s.dirtySums) + len(s.dirtyPairs)
}

// Save writes every dirty key to BadgerDB in one write batch and returns the
// number of keys written.
func (s *SnapshotStore) Save() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSnapshotClosed
	}

	keys := s.Dirty()
	if keys == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	set := func(k, v []byte) error {
		if err := wb.Set(k, v); err != nil {
			wb.Cancel()
			return fmt.Errorf("write snapshot key: %w", err)
		}
		return nil
	}

	for k := range s.dirtyWeights {
		if err := set(encodeWeightKey(k.event, k.user), encodeFloat(s.MemoryStore.Weight(k.event, k.user))); err != nil {
			return 0, err
		}
	}
	for event := range s.dirtySums {
		if err := set(encodeSumKey(event), encodeFloat(s.MemoryStore.WeightSum(event))); err != nil {
			return 0, err
		}
	}
	for k := range s.dirtyPairs {
		if err := set(encodePairKey(k.low, k.high), encodeFloat(s.MemoryStore.PairMinSum(k.low, k.high))); err != nil {
			return 0, err
		}
	}

	stats := s.Stats()
	meta, err := json.Marshal(SnapshotMeta{
		SavedAt: time.Now().UTC(),
		Keys:    keys,
		Events:  stats.Events,
		Users:   stats.Users,
		Pairs:   stats.Pairs,
	})
	if err != nil {
		wb.Cancel()
		return 0, fmt.Errorf("marshal snapshot meta: %w", err)
	}
	if err := set(metaKey, meta); err != nil {
		return 0, err
	}

	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush snapshot: %w", err)
	}

	clear(s.dirtyWeights)
	clear(s.dirtySums)
	clear(s.dirtyPairs)
	return keys, nil
}

// Meta returns metadata of the last saved snapshot, or nil if none exists.
func (s *SnapshotStore) Meta() (*SnapshotMeta, error) {
	var meta *SnapshotMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = &SnapshotMeta{}
			return json.Unmarshal(val, meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}
	return meta, nil
}

// Close saves nothing; callers Save after the final committed batch.
// It waits at most CloseTimeout for BadgerDB to close.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		return nil
	case <-time.After(s.config.CloseTimeout):
		logging.Warn().Dur("timeout", s.config.CloseTimeout).Msg("Snapshot store close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", s.config.CloseTimeout)
	}
}

// load restores weights, sums and pair sums into the embedded MemoryStore
// without marking them dirty.
func (s *SnapshotStore) load() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if len(key) == 0 {
				continue
			}

			var value float64
			switch key[0] {
			case prefixWeight, prefixSum, prefixPair:
				if err := item.Value(func(val []byte) error {
					v, err := decodeFloat(val)
					value = v
					return err
				}); err != nil {
					return fmt.Errorf("decode key %x: %w", key, err)
				}
			default:
				continue
			}

			switch {
			case key[0] == prefixWeight && len(key) == 17:
				event, user := decodeID(key[1:9]), decodeID(key[9:17])
				s.MemoryStore.SetWeight(event, user, value)
			case key[0] == prefixSum && len(key) == 9:
				s.MemoryStore.AddWeightSum(decodeID(key[1:9]), value)
			case key[0] == prefixPair && len(key) == 17:
				s.MemoryStore.AddPairMinSum(decodeID(key[1:9]), decodeID(key[9:17]), value)
			}
		}
		return nil
	})
}

func encodeWeightKey(event, user int64) []byte {
	k := make([]byte, 17)
	k[0] = prefixWeight
	binary.BigEndian.PutUint64(k[1:9], uint64(event))
	binary.BigEndian.PutUint64(k[9:17], uint64(user))
	return k
}

func encodeSumKey(event int64) []byte {
	k := make([]byte, 9)
	k[0] = prefixSum
	binary.BigEndian.PutUint64(k[1:9], uint64(event))
	return k
}

func encodePairKey(low, high int64) []byte {
	k := make([]byte, 17)
	k[0] = prefixPair
	binary.BigEndian.PutUint64(k[1:9], uint64(low))
	binary.BigEndian.PutUint64(k[9:17], uint64(high))
	return k
}

func decodeID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func encodeFloat(v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func decodeFloat(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
