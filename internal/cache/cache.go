// Package cache keeps the last successfully read value per register.
// Failed reads never touch it: a stale value beats no value.
package cache

import (
	"sync"
	"time"
)

// Entry is one cached value with the time it was read off the wire.
type Entry struct {
	Value any
	At    time.Time
}

// Store maps register names to their last known value. Safe for
// concurrent use; readers never block on the transport or the
// connection lock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Update records a successfully read value.
func (s *Store) Update(name string, value any, at time.Time) {
	s.mu.Lock()
	s.entries[name] = Entry{Value: value, At: at}
	s.mu.Unlock()
}

// Get returns the entry for name, if one exists. Registers never
// successfully read stay absent.
func (s *Store) Get(name string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	return e, ok
}

// All returns a copy of every known entry.
func (s *Store) All() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
