// Package worker runs the background alert dispatch loop.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/stream/mqtt"
)

// Dispatcher defaults.
const (
	DefaultConcurrency   = 3
	DefaultNotifyTimeout = 10 * time.Second
)

// DispatcherConfig holds configuration for a Dispatcher.
type DispatcherConfig struct {
	Hub *alerts.Hub

	// Notifier delivers matched notifications.
	Notifier alerts.Notifier

	// Concurrency is the number of delivery workers (default: 3).
	Concurrency int

	// NotifyTimeout bounds a single delivery (default: 10 seconds).
	NotifyTimeout time.Duration

	Logger zerolog.Logger
	Clock  clock.Clock
}

// DispatchMetrics tracks dispatch statistics.
type DispatchMetrics struct {
	AlertsReceived      int64
	PositionsReceived   int64
	NotificationsSent   int64
	NotificationsFailed int64
	LastAlertAt         time.Time
	LastNotificationAt  time.Time
}

// Dispatcher feeds watcher positions and alerts into a hub and delivers the
// resulting notifications through a pool of workers.
type Dispatcher struct {
	hub           *alerts.Hub
	notifier      alerts.Notifier
	concurrency   int
	notifyTimeout time.Duration
	logger        zerolog.Logger
	clock         clock.Clock

	mu      sync.RWMutex
	metrics DispatchMetrics
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}

	return &Dispatcher{
		hub:           cfg.Hub,
		notifier:      cfg.Notifier,
		concurrency:   concurrency,
		notifyTimeout: timeout,
		logger:        cfg.Logger,
		clock:         clock.OrReal(cfg.Clock),
	}
}

// Run dispatches until ctx is done or incoming closes. samples may be nil when
// no position source is configured. Notifications already queued when Run
// stops are still delivered.
func (d *Dispatcher) Run(ctx context.Context, samples <-chan mqtt.Sample, incoming <-chan alerts.Alert) error {
	d.logger.Info().
		Int("concurrency", d.concurrency).
		Bool("positions", samples != nil).
		Msg("starting alert dispatcher")

	jobs := make(chan alerts.Notification, d.concurrency*4)
	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.notifyWorker(ctx, jobs)
		}()
	}

	done := make(chan struct{})
	var positions chan alerts.WatcherPosition
	if samples != nil {
		positions = make(chan alerts.WatcherPosition)
		go d.forwardPositions(samples, positions, done)
	}
	forwarded := make(chan alerts.Alert)
	go d.forwardAlerts(incoming, forwarded, done)

	enqueue := alerts.NotifierFunc(func(ctx context.Context, n alerts.Notification) error {
		select {
		case jobs <- n:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	err := d.hub.Run(ctx, positions, forwarded, enqueue)
	close(done)
	close(jobs)
	wg.Wait()

	m := d.Metrics()
	d.logger.Info().
		Int64("alerts", m.AlertsReceived).
		Int64("notifications_sent", m.NotificationsSent).
		Int64("notifications_failed", m.NotificationsFailed).
		Msg("alert dispatcher stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) forwardPositions(samples <-chan mqtt.Sample, out chan<- alerts.WatcherPosition, done <-chan struct{}) {
	defer close(out)
	for s := range samples {
		d.mu.Lock()
		d.metrics.PositionsReceived++
		d.mu.Unlock()

		select {
		case out <- alerts.WatcherPosition{WatcherID: s.WatcherID, Position: s.Position.Coordinate}:
		case <-done:
			return
		}
	}
}

func (d *Dispatcher) forwardAlerts(incoming <-chan alerts.Alert, out chan<- alerts.Alert, done <-chan struct{}) {
	defer close(out)
	for a := range incoming {
		d.mu.Lock()
		d.metrics.AlertsReceived++
		d.metrics.LastAlertAt = d.clock.Now()
		d.mu.Unlock()

		select {
		case out <- a:
		case <-done:
			return
		}
	}
}

func (d *Dispatcher) notifyWorker(ctx context.Context, jobs <-chan alerts.Notification) {
	// Deliveries outlive shutdown of the receive side.
	base := context.WithoutCancel(ctx)
	for n := range jobs {
		nctx, cancel := context.WithTimeout(base, d.notifyTimeout)
		err := d.notifier.Notify(nctx, n)
		cancel()

		d.mu.Lock()
		if err != nil {
			d.metrics.NotificationsFailed++
		} else {
			d.metrics.NotificationsSent++
			d.metrics.LastNotificationAt = d.clock.Now()
		}
		d.mu.Unlock()

		if err != nil {
			d.logger.Error().Err(err).
				Str("alert_id", n.AlertID).
				Str("watcher_id", n.WatcherID).
				Msg("failed to deliver notification")
		}
	}
}

// Metrics returns a copy of the current metrics.
func (d *Dispatcher) Metrics() DispatchMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.metrics
}

// MetricsSnapshot returns the current metrics as a map for health output.
func (d *Dispatcher) MetricsSnapshot() map[string]interface{} {
	m := d.Metrics()
	snapshot := map[string]interface{}{
		"alerts_received":      m.AlertsReceived,
		"positions_received":   m.PositionsReceived,
		"notifications_sent":   m.NotificationsSent,
		"notifications_failed": m.NotificationsFailed,
		"watchers":             d.hub.Len(),
	}
	if !m.LastAlertAt.IsZero() {
		snapshot["last_alert_at"] = m.LastAlertAt.Format(time.RFC3339)
	}
	if !m.LastNotificationAt.IsZero() {
		snapshot["last_notification_at"] = m.LastNotificationAt.Format(time.RFC3339)
	}
	return snapshot
}
