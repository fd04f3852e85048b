// Package measurement holds the most recent completed echo measurement.
package measurement

import (
	"sync"
	"time"
)

// Measurement is a committed echo duration.
type Measurement struct {
	Ticks int
	Seq   uint64    // number of commits so far; 0 means none yet
	At    time.Time // commit time, zero until the first commit
}

// Store is a single-slot holder written by the dispatcher and read by any
// number of goroutines.
type Store struct {
	mu  sync.RWMutex
	m   Measurement
	now func() time.Time
}

// NewStore creates an empty store. now stamps each commit; nil uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Set commits a new measurement.
func (s *Store) Set(ticks int) {
	at := s.now()
	s.mu.Lock()
	s.m.Ticks = ticks
	s.m.Seq++
	s.m.At = at
	s.mu.Unlock()
}

// Get returns the last committed tick count, or 0 before the first commit.
func (s *Store) Get() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Ticks
}

// Snapshot returns the last committed measurement with its sequence number.
func (s *Store) Snapshot() Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}
