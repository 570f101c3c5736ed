// Package cache provides bounded, TTL-aware key/value stores used in front of
// external providers.
package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/saferoute/saferoute/internal/clock"
)

// Entry is a cached value together with its freshness window.
type Entry[V any] struct {
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still within its TTL at now.
func (e Entry[V]) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is a cache keyed by string. Implementations must be safe for concurrent use.
// A missing cache is represented by Nop, never by nil.
type Store[V any] interface {
	// Lookup returns the entry for key, fresh or stale.
	Lookup(key string) (Entry[V], bool)
	// Put stores value under key for ttl.
	Put(key string, value V, ttl time.Duration)
}

// MemoryConfig holds configuration for an in-memory store.
type MemoryConfig struct {
	// Capacity is the maximum number of entries (default: 1024).
	// The least recently used entry is evicted when full.
	Capacity int

	// Retention is how long an entry is kept after it was stored, including the
	// time it spends stale (default: 24 hours).
	Retention time.Duration

	// Clock is the time source (default: wall clock).
	Clock clock.Clock
}

// Memory is a bounded LRU store with per-entry expiry.
type Memory[V any] struct {
	entries   *lru.Cache[string, Entry[V]]
	retention time.Duration
	clock     clock.Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates an in-memory store.
func NewMemory[V any](cfg MemoryConfig) *Memory[V] {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1024
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 24 * time.Hour
	}

	// lru.New only fails for non-positive sizes.
	entries, _ := lru.New[string, Entry[V]](capacity)

	return &Memory[V]{
		entries:   entries,
		retention: retention,
		clock:     clock.OrReal(cfg.Clock),
	}
}

// Lookup returns the entry for key unless it has outlived the retention window.
func (m *Memory[V]) Lookup(key string) (Entry[V], bool) {
	e, ok := m.entries.Get(key)
	if !ok {
		m.misses.Add(1)
		return Entry[V]{}, false
	}
	if m.clock.Now().After(e.StoredAt.Add(m.retention)) {
		m.entries.Remove(key)
		m.misses.Add(1)
		return Entry[V]{}, false
	}
	m.hits.Add(1)
	return e, true
}

// Get returns the value for key only while it is fresh.
func (m *Memory[V]) Get(key string) (V, bool) {
	e, ok := m.Lookup(key)
	if !ok || !e.Fresh(m.clock.Now()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Put stores value under key for ttl. A non-positive ttl stores an already-stale entry.
func (m *Memory[V]) Put(key string, value V, ttl time.Duration) {
	now := m.clock.Now()
	m.entries.Add(key, Entry[V]{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}

// Len returns the number of entries currently held.
func (m *Memory[V]) Len() int {
	return m.entries.Len()
}

// Purge removes all entries.
func (m *Memory[V]) Purge() {
	m.entries.Purge()
}

// Stats returns a snapshot of cache statistics.
func (m *Memory[V]) Stats() Stats {
	now := m.clock.Now()
	fresh, stale := 0, 0
	for _, key := range m.entries.Keys() {
		e, ok := m.entries.Peek(key)
		if !ok {
			continue
		}
		if e.Fresh(now) {
			fresh++
		} else {
			stale++
		}
	}

	return Stats{
		TotalEntries: fresh + stale,
		FreshEntries: fresh,
		StaleEntries: stale,
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
	}
}

// Stats contains cache statistics.
type Stats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Hits         int64
	Misses       int64
}

// Nop is a Store that never holds anything.
type Nop[V any] struct{}

// Lookup always misses.
func (Nop[V]) Lookup(string) (Entry[V], bool) { return Entry[V]{}, false }

// Put discards the value.
func (Nop[V]) Put(string, V, time.Duration) {}
