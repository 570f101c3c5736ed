package navigation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/routing"
)

// Planner plans routes for recalculation.
type Planner interface {
	Plan(ctx context.Context, origin, destination routing.Coordinate, opts planner.Options) ([]*planner.ScoredRoute, error)
}

// NavigatorConfig holds configuration for a navigator.
type NavigatorConfig struct {
	Thresholds Thresholds
	Logger     zerolog.Logger
	Clock      clock.Clock

	// Planner is used by Recalculate (optional).
	Planner Planner

	// Options are passed to Planner on recalculation.
	Options planner.Options
}

// Navigator owns at most one active session for a device.
type Navigator struct {
	cfg NavigatorConfig

	mu      sync.Mutex
	session *Session
}

// NewNavigator creates a navigator.
func NewNavigator(cfg NavigatorConfig) *Navigator {
	cfg.Clock = clock.OrReal(cfg.Clock)
	return &Navigator{cfg: cfg}
}

// Start begins navigating route. An active session is stopped first.
func (n *Navigator) Start(route *planner.ScoredRoute) (*Session, error) {
	s, err := NewSession(route, SessionConfig{
		Thresholds: n.cfg.Thresholds,
		Logger:     n.cfg.Logger,
		Clock:      n.cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session != nil {
		n.session.Stop()
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	n.session = s
	return s, nil
}

// Session returns the most recent session, which may have ended.
func (n *Navigator) Session() (*Session, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return nil, ErrInvalidSession
	}
	return n.session, nil
}

// Active returns the active session.
func (n *Navigator) Active() (*Session, error) {
	s, err := n.Session()
	if err != nil {
		return nil, err
	}
	if s.State() != StateActive {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidSession, s.State())
	}
	return s, nil
}

// Update feeds a position to the active session.
func (n *Navigator) Update(pos Position) (Progress, error) {
	s, err := n.Session()
	if err != nil {
		return Progress{}, err
	}
	return s.Update(pos)
}

// Progress returns the snapshot of the most recent session.
func (n *Navigator) Progress() (Progress, error) {
	s, err := n.Session()
	if err != nil {
		return Progress{}, err
	}
	return s.Progress(), nil
}

// Stop stops the active session.
func (n *Navigator) Stop() error {
	s, err := n.Active()
	if err != nil {
		return err
	}
	s.Stop()
	return nil
}

// Recalculate plans new routes from the last known position to the destination
// of the current route. It does not switch routes; the caller picks one and
// calls Start.
func (n *Navigator) Recalculate(ctx context.Context) ([]*planner.ScoredRoute, error) {
	if n.cfg.Planner == nil {
		return nil, fmt.Errorf("%w: recalculation not configured", ErrInvalidSession)
	}

	s, err := n.Session()
	if err != nil {
		return nil, err
	}
	from, ok := s.LastPosition()
	if !ok {
		from = s.Route().Candidate.Origin()
	}

	n.cfg.Logger.Info().
		Str("session_id", s.ID()).
		Str("state", string(s.State())).
		Msg("recalculating route")

	return n.cfg.Planner.Plan(ctx, from, s.Route().Candidate.Destination(), n.cfg.Options)
}
