package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/clock"
)

func newTestMemory(t *testing.T, capacity int) (*Memory[string], *clock.Fixed) {
	t.Helper()
	c := clock.NewFixed(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	return NewMemory[string](MemoryConfig{
		Capacity:  capacity,
		Retention: time.Hour,
		Clock:     c,
	}), c
}

func TestMemory_FreshAndStale(t *testing.T) {
	m, c := newTestMemory(t, 10)

	m.Put("route", "value", 5*time.Minute)

	got, ok := m.Get("route")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	c.Advance(10 * time.Minute)

	_, ok = m.Get("route")
	assert.False(t, ok, "expired entries must not be returned by Get")

	e, ok := m.Lookup("route")
	require.True(t, ok, "stale entries remain available through Lookup")
	assert.False(t, e.Fresh(c.Now()))
	assert.Equal(t, "value", e.Value)

	c.Advance(time.Hour)
	_, ok = m.Lookup("route")
	assert.False(t, ok, "entries past retention are dropped")
	assert.Equal(t, 0, m.Len())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m, _ := newTestMemory(t, 3)

	for i := 0; i < 3; i++ {
		m.Put(fmt.Sprintf("k%d", i), "v", time.Minute)
	}
	// Touch k0 so k1 becomes the eviction candidate.
	_, _ = m.Get("k0")
	m.Put("k3", "v", time.Minute)

	assert.Equal(t, 3, m.Len())
	_, ok := m.Get("k1")
	assert.False(t, ok)
	_, ok = m.Get("k0")
	assert.True(t, ok)
}

func TestMemory_Stats(t *testing.T) {
	m, c := newTestMemory(t, 10)

	m.Put("a", "1", time.Minute)
	m.Put("b", "2", time.Hour)
	c.Advance(2 * time.Minute)

	_, _ = m.Get("a")
	_, _ = m.Get("missing")

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestNop(t *testing.T) {
	var s Store[int] = Nop[int]{}
	s.Put("k", 1, time.Hour)
	_, ok := s.Lookup("k")
	assert.False(t, ok)
}

func TestGridKey(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		cell     float64
		expected string
	}{
		{name: "two decimals", lat: 12.9716, lon: 77.5946, cell: 0.01, expected: "12.97,77.59"},
		{name: "three decimals", lat: 12.9716, lon: 77.5946, cell: 0.001, expected: "12.971,77.594"},
		{name: "negative floors away from zero", lat: -33.8688, lon: 151.2093, cell: 0.01, expected: "-33.87,151.20"},
		{name: "five decimals on a cell boundary", lat: 12.9716, lon: 77.5946, cell: 0.00001, expected: "12.97160,77.59460"},
		{name: "five decimals ignores sub-meter noise", lat: 12.971600001, lon: 77.594600001, cell: 0.00001, expected: "12.97160,77.59460"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GridKey(tt.lat, tt.lon, tt.cell))
		})
	}

	assert.Equal(t, GridKey(12.97161, 77.59461, 0.01), GridKey(12.97399, 77.59999, 0.01))
}
