package alerts

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/pkg/polyline"
)

var (
	watcherPos = polyline.Coordinate{Lat: 12.9716, Lon: 77.5946}
	raisedAt   = time.Date(2024, 11, 4, 22, 10, 0, 0, time.UTC)
)

func newMatcher(t *testing.T, cfg MatcherConfig) *Matcher {
	t.Helper()
	if cfg.WatcherID == "" {
		cfg.WatcherID = "watcher"
	}
	cfg.Logger = zerolog.Nop()
	cfg.Clock = clock.NewFixed(raisedAt)
	m := NewMatcher(cfg)
	require.NoError(t, m.UpdatePosition(watcherPos))
	return m
}

func alertAt(id string, distance, radius float64) Alert {
	return Alert{
		ID:           id,
		UserID:       "someone-else",
		Origin:       polyline.Destination(watcherPos, 45, distance),
		RadiusMeters: radius,
		CreatedAt:    raisedAt,
	}
}

func TestMatcher_RadiusDecides(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		notify bool
	}{
		{"inside radius", 500, true},
		{"outside radius", 300, false},
		{"default radius", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatcher(t, MatcherConfig{})

			n, ok := m.Evaluate(alertAt("a-1", 400, tt.radius))

			assert.Equal(t, tt.notify, ok)
			if tt.notify {
				assert.Equal(t, "a-1", n.AlertID)
				assert.Equal(t, "watcher", n.WatcherID)
				assert.InDelta(t, 400, n.DistanceMeters, 0.5)
				assert.Equal(t, raisedAt, n.NotifiedAt)
			}
		})
	}
}

func TestMatcher_NotifiesOncePerAlert(t *testing.T) {
	m := newMatcher(t, MatcherConfig{})
	a := alertAt("a-1", 100, 500)

	_, first := m.Evaluate(a)
	_, second := m.Evaluate(a)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, m.Notified("a-1"))
}

func TestMatcher_OutOfRangeAlertCanNotifyLater(t *testing.T) {
	m := newMatcher(t, MatcherConfig{})
	a := alertAt("a-1", 800, 500)

	_, ok := m.Evaluate(a)
	require.False(t, ok)
	assert.False(t, m.Notified("a-1"))

	require.NoError(t, m.UpdatePosition(polyline.Destination(watcherPos, 45, 600)))
	_, ok = m.Evaluate(a)
	assert.True(t, ok)
}

func TestMatcher_Skips(t *testing.T) {
	m := newMatcher(t, MatcherConfig{WatcherID: "me"})

	own := alertAt("a-own", 10, 500)
	own.UserID = "me"
	_, ok := m.Evaluate(own)
	assert.False(t, ok, "own alerts")

	invalid := alertAt("a-bad", 10, 500)
	invalid.Origin = polyline.Coordinate{Lat: 120}
	_, ok = m.Evaluate(invalid)
	assert.False(t, ok, "invalid origin")

	_, ok = m.Evaluate(Alert{Origin: watcherPos})
	assert.False(t, ok, "missing id")

	blind := NewMatcher(MatcherConfig{WatcherID: "me", Logger: zerolog.Nop()})
	_, ok = blind.Evaluate(alertAt("a-1", 10, 500))
	assert.False(t, ok, "no position yet")
}

func TestAlert_ValidateRadius(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		valid  bool
	}{
		{"default", 0, true},
		{"explicit", 250, true},
		{"negative", -1, false},
		{"NaN", math.NaN(), false},
		{"infinite", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := alertAt("a-r", 3000, tt.radius)
			err := a.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidAlert)

			m := newMatcher(t, MatcherConfig{})
			_, ok := m.Evaluate(a)
			assert.False(t, ok, "far watcher is not notified")
		})
	}
}

func TestMatcher_NotifiedSetIsBounded(t *testing.T) {
	m := newMatcher(t, MatcherConfig{NotifiedCapacity: 2})

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		_, ok := m.Evaluate(alertAt(id, 50, 500))
		require.True(t, ok)
	}

	assert.False(t, m.Notified("a-1"), "oldest id evicted")
	assert.True(t, m.Notified("a-2"))
	assert.True(t, m.Notified("a-3"))

	m.Reset()
	assert.False(t, m.Notified("a-3"))
}

func TestMatcher_InvalidPosition(t *testing.T) {
	m := newMatcher(t, MatcherConfig{})

	assert.ErrorIs(t, m.UpdatePosition(polyline.Coordinate{Lon: 200}), ErrInvalidPosition)

	got, ok := m.Position()
	require.True(t, ok)
	assert.Equal(t, watcherPos, got, "previous position kept")
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestMatcher_Run(t *testing.T) {
	m := NewMatcher(MatcherConfig{WatcherID: "watcher", Logger: zerolog.Nop()})
	positions := make(chan polyline.Coordinate)
	incoming := make(chan Alert)
	notifier := &recordingNotifier{}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), positions, incoming, notifier) }()

	positions <- watcherPos
	close(positions)
	incoming <- alertAt("a-1", 200, 500)
	incoming <- alertAt("a-1", 200, 500)
	incoming <- alertAt("a-2", 2000, 500)
	close(incoming)

	require.NoError(t, <-done)
	assert.Equal(t, 1, notifier.count())
}

func TestHub_Dispatch(t *testing.T) {
	h := NewHub(HubConfig{Logger: zerolog.Nop(), Clock: clock.NewFixed(raisedAt)})

	require.NoError(t, h.UpdatePosition("near", polyline.Destination(watcherPos, 0, 100)))
	require.NoError(t, h.UpdatePosition("nearer", watcherPos))
	require.NoError(t, h.UpdatePosition("far", polyline.Destination(watcherPos, 0, 3000)))
	require.NoError(t, h.UpdatePosition("author", watcherPos))

	a := Alert{ID: "a-1", UserID: "author", Origin: watcherPos, CreatedAt: raisedAt}

	got := h.Dispatch(a)
	require.Len(t, got, 2)
	assert.Equal(t, "nearer", got[0].WatcherID)
	assert.Equal(t, "near", got[1].WatcherID)

	assert.Empty(t, h.Dispatch(a), "each watcher hears about an alert once")
	assert.Empty(t, h.Dispatch(Alert{ID: "bad", Origin: polyline.Coordinate{Lat: -100}}))
}

func TestHub_BoundsWatchers(t *testing.T) {
	h := NewHub(HubConfig{MaxWatchers: 2, Logger: zerolog.Nop()})

	require.NoError(t, h.UpdatePosition("a", watcherPos))
	require.NoError(t, h.UpdatePosition("b", watcherPos))
	require.NoError(t, h.UpdatePosition("c", watcherPos))
	assert.Equal(t, 2, h.Len())

	got := h.Dispatch(Alert{ID: "x", Origin: watcherPos})
	ids := []string{got[0].WatcherID, got[1].WatcherID}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)

	h.Remove("b")
	assert.Equal(t, 1, h.Len())
}

func TestHub_InvalidPositionKeepsWatchers(t *testing.T) {
	h := NewHub(HubConfig{MaxWatchers: 1, Logger: zerolog.Nop()})

	require.NoError(t, h.UpdatePosition("alice", watcherPos))
	a := Alert{ID: "a-1", Origin: watcherPos}
	require.Len(t, h.Dispatch(a), 1)

	err := h.UpdatePosition("mallory", polyline.Coordinate{Lat: 999})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	assert.Equal(t, 1, h.Len())

	require.NoError(t, h.UpdatePosition("alice", watcherPos))
	assert.Empty(t, h.Dispatch(a), "alice was already told about a-1")
}

func TestHub_Run(t *testing.T) {
	h := NewHub(HubConfig{Logger: zerolog.Nop()})
	positions := make(chan WatcherPosition)
	incoming := make(chan Alert)
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, positions, incoming, notifier) }()

	positions <- WatcherPosition{WatcherID: "w-1", Position: watcherPos}
	positions <- WatcherPosition{WatcherID: "w-2", Position: polyline.Destination(watcherPos, 90, 450)}
	incoming <- alertAt("a-1", 0, 0)

	assert.Eventually(t, func() bool { return notifier.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
