package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/stream/mqtt"
	"github.com/saferoute/saferoute/internal/worker"
	"github.com/saferoute/saferoute/pkg/polyline"
)

var origin = polyline.Coordinate{Lat: 12.9716, Lon: 77.5946}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []alerts.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n alerts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type testEnv struct {
	hub        *alerts.Hub
	dispatcher *worker.Dispatcher
	samples    chan mqtt.Sample
	incoming   chan alerts.Alert
	done       chan error
}

func startDispatcher(t *testing.T, notifier alerts.Notifier) *testEnv {
	t.Helper()

	clk := clock.NewFixed(time.Date(2024, 5, 20, 21, 0, 0, 0, time.UTC))
	hub := alerts.NewHub(alerts.HubConfig{Logger: zerolog.Nop(), Clock: clk})
	env := &testEnv{
		hub: hub,
		dispatcher: worker.NewDispatcher(worker.DispatcherConfig{
			Hub:         hub,
			Notifier:    notifier,
			Concurrency: 2,
			Logger:      zerolog.Nop(),
			Clock:       clk,
		}),
		samples:  make(chan mqtt.Sample),
		incoming: make(chan alerts.Alert),
		done:     make(chan error, 1),
	}

	go func() {
		env.done <- env.dispatcher.Run(context.Background(), env.samples, env.incoming)
	}()
	return env
}

func (e *testEnv) watch(t *testing.T, watcherID string, p polyline.Coordinate) {
	t.Helper()
	e.samples <- mqtt.Sample{WatcherID: watcherID, Position: navigation.Position{Coordinate: p}}
}

func (e *testEnv) stop(t *testing.T) {
	t.Helper()
	close(e.incoming)
	select {
	case err := <-e.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_NotifiesNearbyWatchers(t *testing.T) {
	notifier := &recordingNotifier{}
	env := startDispatcher(t, notifier)

	env.watch(t, "near", polyline.Destination(origin, 0, 200))
	env.watch(t, "far", polyline.Destination(origin, 0, 2000))
	require.Eventually(t, func() bool { return env.hub.Len() == 2 }, time.Second, 5*time.Millisecond)

	env.incoming <- alerts.Alert{ID: "alert-1", UserID: "sender", Origin: origin}
	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)

	env.stop(t)

	assert.Equal(t, "near", notifier.sent[0].WatcherID)
	assert.InDelta(t, 200, notifier.sent[0].DistanceMeters, 1)

	m := env.dispatcher.Metrics()
	assert.Equal(t, int64(1), m.AlertsReceived)
	assert.Equal(t, int64(2), m.PositionsReceived)
	assert.Equal(t, int64(1), m.NotificationsSent)
	assert.Zero(t, m.NotificationsFailed)
	assert.False(t, m.LastAlertAt.IsZero())
}

func TestDispatcher_CountsFailedDeliveries(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	env := startDispatcher(t, notifier)

	env.watch(t, "near", polyline.Destination(origin, 90, 100))
	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	env.incoming <- alerts.Alert{ID: "alert-1", Origin: origin}
	require.Eventually(t, func() bool {
		return env.dispatcher.Metrics().NotificationsFailed == 1
	}, time.Second, 5*time.Millisecond)

	env.stop(t)
	assert.Zero(t, env.dispatcher.Metrics().NotificationsSent)
}

func TestDispatcher_WithoutPositionSource(t *testing.T) {
	hub := alerts.NewHub(alerts.HubConfig{Logger: zerolog.Nop()})
	require.NoError(t, hub.UpdatePosition("w1", origin))

	notifier := &recordingNotifier{}
	d := worker.NewDispatcher(worker.DispatcherConfig{Hub: hub, Notifier: notifier, Logger: zerolog.Nop()})

	incoming := make(chan alerts.Alert, 1)
	incoming <- alerts.Alert{ID: "alert-1", Origin: origin}
	close(incoming)

	require.NoError(t, d.Run(context.Background(), nil, incoming))
	assert.Equal(t, 1, notifier.count())
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	hub := alerts.NewHub(alerts.HubConfig{Logger: zerolog.Nop()})
	d := worker.NewDispatcher(worker.DispatcherConfig{Hub: hub, Notifier: &recordingNotifier{}, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, make(chan mqtt.Sample), make(chan alerts.Alert)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_MetricsSnapshot(t *testing.T) {
	hub := alerts.NewHub(alerts.HubConfig{Logger: zerolog.Nop()})
	require.NoError(t, hub.UpdatePosition("w1", origin))
	d := worker.NewDispatcher(worker.DispatcherConfig{Hub: hub, Notifier: &recordingNotifier{}})

	snapshot := d.MetricsSnapshot()
	assert.Equal(t, int64(0), snapshot["alerts_received"])
	assert.Equal(t, 1, snapshot["watchers"])
	assert.NotContains(t, snapshot, "last_alert_at")
}
