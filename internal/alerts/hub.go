package alerts

import (
	"context"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// DefaultMaxWatchers bounds the number of watchers a Hub tracks.
const DefaultMaxWatchers = 50000

// WatcherPosition is a position report from one watcher.
type WatcherPosition struct {
	WatcherID string
	Position  polyline.Coordinate
}

// HubConfig holds configuration for a hub.
type HubConfig struct {
	// MaxWatchers bounds tracked watchers (default: 50000). The watcher that
	// reported least recently is dropped first.
	MaxWatchers int

	// NotifiedCapacity and DefaultRadiusMeters configure every watcher's matcher.
	NotifiedCapacity    int
	DefaultRadiusMeters float64

	Logger zerolog.Logger
	Clock  clock.Clock
}

// Hub runs one Matcher per watcher and dispatches every alert to all of them.
type Hub struct {
	cfg HubConfig

	mu       sync.Mutex
	watchers *lru.Cache[string, *Matcher]
}

// NewHub creates a hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.MaxWatchers <= 0 {
		cfg.MaxWatchers = DefaultMaxWatchers
	}
	cfg.Clock = clock.OrReal(cfg.Clock)

	watchers, _ := lru.New[string, *Matcher](cfg.MaxWatchers)
	return &Hub{cfg: cfg, watchers: watchers}
}

// UpdatePosition records a watcher's position, registering the watcher on first use.
// Invalid positions are rejected before registration so they cannot evict a
// watcher and reset its notified set.
func (h *Hub) UpdatePosition(watcherID string, p polyline.Coordinate) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	return h.matcher(watcherID).UpdatePosition(p)
}

func (h *Hub) matcher(watcherID string) *Matcher {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.watchers.Get(watcherID); ok {
		return m
	}
	m := NewMatcher(MatcherConfig{
		WatcherID:           watcherID,
		NotifiedCapacity:    h.cfg.NotifiedCapacity,
		DefaultRadiusMeters: h.cfg.DefaultRadiusMeters,
		Logger:              h.cfg.Logger,
		Clock:               h.cfg.Clock,
	})
	h.watchers.Add(watcherID, m)
	return m
}

// Remove forgets a watcher.
func (h *Hub) Remove(watcherID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers.Remove(watcherID)
}

// Len returns the number of tracked watchers.
func (h *Hub) Len() int {
	return h.watchers.Len()
}

// Dispatch evaluates an alert against every watcher and returns the resulting
// notifications ordered by distance.
func (h *Hub) Dispatch(a Alert) []Notification {
	if err := a.Validate(); err != nil {
		h.cfg.Logger.Warn().Err(err).Str("alert_id", a.ID).Msg("dropping invalid alert")
		return nil
	}

	h.mu.Lock()
	matchers := h.watchers.Values()
	h.mu.Unlock()

	var out []Notification
	for _, m := range matchers {
		if n, ok := m.Evaluate(a); ok {
			out = append(out, n)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out
}

// Run consumes watcher positions and alerts until ctx is done or the alert
// channel closes, delivering notifications through notifier.
func (h *Hub) Run(ctx context.Context, positions <-chan WatcherPosition, incoming <-chan Alert, notifier Notifier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case wp, ok := <-positions:
			if !ok {
				positions = nil
				continue
			}
			if err := h.UpdatePosition(wp.WatcherID, wp.Position); err != nil {
				h.cfg.Logger.Warn().Err(err).Str("watcher_id", wp.WatcherID).Msg("skipping invalid position")
			}
		case a, ok := <-incoming:
			if !ok {
				return nil
			}
			for _, n := range h.Dispatch(a) {
				if err := notifier.Notify(ctx, n); err != nil {
					h.cfg.Logger.Error().Err(err).
						Str("alert_id", n.AlertID).
						Str("watcher_id", n.WatcherID).
						Msg("failed to deliver notification")
				}
			}
		}
	}
}
