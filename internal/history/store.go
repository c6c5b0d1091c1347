// Package history implements the bounded, ordered, durable buffer of
// accepted position samples.
package history

import (
	"encoding/json"
	"log/slog"
	"sync"

	"geotrail/internal/adapter/slot"
	"geotrail/internal/domain"
)

// DefaultCapacity is the history bound when none is configured.
const DefaultCapacity = 100

// Store is a strict sliding window over accepted samples: insertion
// order equals acquisition order, length never exceeds capacity, the
// oldest sample is evicted first. Samples are never reordered or
// deduplicated.
//
// Each successful append is written through to the slot; write
// failures are logged and swallowed so tracking keeps working without
// durable storage.
type Store struct {
	capacity int
	slot     slot.Slot
	logger   *slog.Logger

	mu      sync.RWMutex
	samples []domain.PositionSample
}

// NewStore creates a history store over the given slot.
func NewStore(capacity int, s slot.Slot, logger *slog.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		slot:     s,
		logger:   logger,
		samples:  make([]domain.PositionSample, 0, capacity),
	}
}

// Capacity returns the buffer bound.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the current buffer length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Append inserts the sample at the tail, evicting from the head when
// the buffer is full, then persists the new snapshot. The slot write
// happens under the store lock so snapshots reach the slot in append
// order; a racing writer can never make an older state durable last.
func (s *Store) Append(sample domain.PositionSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	if over := len(s.samples) - s.capacity; over > 0 {
		s.samples = append(s.samples[:0], s.samples[over:]...)
	}
	s.persistLocked()
}

// Snapshot returns a point-in-time copy of the buffer in insertion
// order, unaffected by later mutation.
func (s *Store) Snapshot() []domain.PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Clear empties the buffer and persists the empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = s.samples[:0]
	s.persistLocked()
}

// Hydrate loads the persisted sequence as the initial buffer state.
// Malformed persisted data is discarded and the buffer starts empty —
// hydration is never fatal. Sequences longer than the capacity are
// truncated to the most recent entries.
func (s *Store) Hydrate() {
	data, ok, err := s.slot.ReadAll()
	if err != nil {
		s.logger.Warn("history hydrate read failed, starting empty", "slot", s.slot.Name(), "error", err)
		return
	}
	if !ok {
		return
	}

	var persisted []domain.PositionSample
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("history hydrate parse failed, starting empty", "slot", s.slot.Name(), "error", err)
		return
	}
	if over := len(persisted) - s.capacity; over > 0 {
		persisted = persisted[over:]
	}

	s.mu.Lock()
	s.samples = append(s.samples[:0], persisted...)
	s.mu.Unlock()
}

// Persist writes the current buffer to the slot. Best-effort: a write
// failure is logged, never surfaced.
func (s *Store) Persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// persistLocked marshals and writes the buffer. Caller holds mu.
func (s *Store) persistLocked() {
	snapshot := s.samples
	if snapshot == nil {
		snapshot = []domain.PositionSample{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("history marshal failed", "slot", s.slot.Name(), "error", err)
		return
	}
	if err := s.slot.WriteAll(data); err != nil {
		s.logger.Warn("history persist failed", "slot", s.slot.Name(), "error", err)
	}
}

// copyLocked copies the buffer. Caller holds mu.
func (s *Store) copyLocked() []domain.PositionSample {
	out := make([]domain.PositionSample, len(s.samples))
	copy(out, s.samples)
	return out
}
