package alerts

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// MatcherConfig holds configuration for a matcher.
type MatcherConfig struct {
	// WatcherID is the user the matcher watches for; their own alerts are skipped.
	WatcherID string

	// NotifiedCapacity bounds the set of alert ids already notified
	// (default: 256). The oldest id is forgotten first.
	NotifiedCapacity int

	// DefaultRadiusMeters applies to alerts without a radius (default: 500).
	DefaultRadiusMeters float64

	Logger zerolog.Logger
	Clock  clock.Clock
}

// Matcher decides which alerts a single watcher should hear about. It notifies at
// most once per alert id while the id is remembered.
type Matcher struct {
	watcherID     string
	defaultRadius float64
	logger        zerolog.Logger
	clock         clock.Clock

	mu       sync.Mutex
	position *polyline.Coordinate
	notified *lru.Cache[string, struct{}]
}

// NewMatcher creates a matcher.
func NewMatcher(cfg MatcherConfig) *Matcher {
	capacity := cfg.NotifiedCapacity
	if capacity <= 0 {
		capacity = DefaultNotifiedCapacity
	}
	radius := cfg.DefaultRadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	notified, _ := lru.New[string, struct{}](capacity)

	return &Matcher{
		watcherID:     cfg.WatcherID,
		defaultRadius: radius,
		logger:        cfg.Logger,
		clock:         clock.OrReal(cfg.Clock),
		notified:      notified,
	}
}

// WatcherID returns the watched user.
func (m *Matcher) WatcherID() string { return m.watcherID }

// UpdatePosition records the watcher's current position.
func (m *Matcher) UpdatePosition(p polyline.Coordinate) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = &p
	return nil
}

// Position returns the last recorded position.
func (m *Matcher) Position() (polyline.Coordinate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.position == nil {
		return polyline.Coordinate{}, false
	}
	return *m.position, true
}

// Evaluate matches an alert against the current position. It returns the
// notification and true when the watcher should be told.
//
// The watcher's own alerts, alerts already notified, invalid alerts and alerts
// arriving before any position is known are skipped.
func (m *Matcher) Evaluate(a Alert) (Notification, bool) {
	if a.Validate() != nil {
		return Notification{}, false
	}
	if a.UserID != "" && a.UserID == m.watcherID {
		return Notification{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.notified.Contains(a.ID) || m.position == nil {
		return Notification{}, false
	}

	radius := a.RadiusMeters
	if radius == 0 {
		radius = m.defaultRadius
	}
	distance := polyline.Haversine(*m.position, a.Origin)
	if distance > radius {
		return Notification{}, false
	}

	m.notified.Add(a.ID, struct{}{})

	m.logger.Info().
		Str("alert_id", a.ID).
		Str("watcher_id", m.watcherID).
		Float64("distance_meters", distance).
		Msg("alert matched watcher")

	return Notification{
		AlertID:        a.ID,
		WatcherID:      m.watcherID,
		DistanceMeters: distance,
		Alert:          a,
		NotifiedAt:     m.clock.Now(),
	}, true
}

// Notified reports whether an alert id has already produced a notification.
func (m *Matcher) Notified(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notified.Contains(alertID)
}

// Reset forgets every notified alert id.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified.Purge()
}

// Run consumes positions and alerts until ctx is done or the alert channel
// closes, delivering every notification through notifier. A closed position
// channel only stops position updates.
func (m *Matcher) Run(ctx context.Context, positions <-chan polyline.Coordinate, incoming <-chan Alert, notifier Notifier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-positions:
			if !ok {
				positions = nil
				continue
			}
			if err := m.UpdatePosition(p); err != nil {
				m.logger.Warn().Err(err).Str("watcher_id", m.watcherID).Msg("skipping invalid position")
			}
		case a, ok := <-incoming:
			if !ok {
				return nil
			}
			n, notify := m.Evaluate(a)
			if !notify {
				continue
			}
			if err := notifier.Notify(ctx, n); err != nil {
				m.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to deliver notification")
			}
		}
	}
}
