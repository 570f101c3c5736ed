// Package navigation tracks a traveller against a chosen route: it advances through
// steps, detects arrival and deviation, and reports what remains.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// ErrInvalidSession is returned when a navigation operation needs an active
// session and there is none.
var ErrInvalidSession = errors.New("no active navigation session")

// ErrInvalidPosition is returned for position samples outside the valid range.
var ErrInvalidPosition = errors.New("invalid position")

// State is the lifecycle state of a session.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateArrived  State = "arrived"
	StateStopped  State = "stopped"
	StateDeviated State = "deviated"
)

// Terminal reports whether the state accepts no further updates.
func (s State) Terminal() bool {
	return s == StateArrived || s == StateStopped || s == StateDeviated
}

// Default thresholds in meters.
const (
	DefaultStepAdvanceMeters = 15
	DefaultArrivalMeters     = 10
	DefaultDeviationMeters   = 50
)

// Thresholds are the distances that drive state transitions.
type Thresholds struct {
	// StepAdvanceMeters is how close to the end of the current step a position
	// must be to move on to the next step (default: 15).
	StepAdvanceMeters float64
	// ArrivalMeters is how close to the destination counts as arrived (default: 10).
	ArrivalMeters float64
	// DeviationMeters is how far from the route geometry counts as off route (default: 50).
	DeviationMeters float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.StepAdvanceMeters <= 0 {
		t.StepAdvanceMeters = DefaultStepAdvanceMeters
	}
	if t.ArrivalMeters <= 0 {
		t.ArrivalMeters = DefaultArrivalMeters
	}
	if t.DeviationMeters <= 0 {
		t.DeviationMeters = DefaultDeviationMeters
	}
	return t
}

// Position is one sample from a position source.
type Position struct {
	polyline.Coordinate
	// Heading in degrees, when the source provides it.
	Heading *float64
	// Speed in meters per second, when the source provides it.
	Speed *float64
	// RecordedAt is when the sample was taken; zero means now.
	RecordedAt time.Time
}

// Progress is a snapshot of a session.
type Progress struct {
	SessionID string
	RouteID   string
	State     State

	StepIndex   int
	StepCount   int
	Instruction string
	Maneuver    routing.Maneuver

	DistanceToManeuverMeters float64
	// DistanceToManeuver is the same distance formatted for display.
	DistanceToManeuver string

	RemainingDistanceMeters  float64
	RemainingDurationSeconds float64

	// OffRouteMeters is the distance from the last position to the route geometry.
	OffRouteMeters float64
	// CumulativeOffRouteMeters adds up OffRouteMeters over every update.
	CumulativeOffRouteMeters float64

	// StepAdvanced is set when the update that produced this snapshot moved to a new step.
	StepAdvanced bool

	Position  *polyline.Coordinate
	UpdatedAt time.Time
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Thresholds Thresholds

	// Logger for session lifecycle events.
	Logger zerolog.Logger

	// Clock stamps progress snapshots (default: wall clock).
	Clock clock.Clock

	// OnProgress is called after every accepted position update, outside the
	// session lock (optional).
	OnProgress func(Progress)
}

// Session follows one route. Create it with NewSession and call Start; updates
// are accepted only while the session is active.
type Session struct {
	id         string
	route      *planner.ScoredRoute
	thresholds Thresholds
	logger     zerolog.Logger
	clock      clock.Clock
	onProgress func(Progress)

	mu                 sync.Mutex
	state              State
	stepIndex          int
	position           *polyline.Coordinate
	offRoute           float64
	cumulativeOffRoute float64
	stepAdvanced       bool
	updatedAt          time.Time

	// Totals of the steps after the current one, reduced as steps complete.
	distanceAfterStep float64
	durationAfterStep float64

	// cancel releases a running position subscription.
	cancel context.CancelFunc
}

// NewSession creates an idle session for route.
func NewSession(route *planner.ScoredRoute, cfg SessionConfig) (*Session, error) {
	if route == nil || route.Candidate == nil || route.Candidate.NumPoints() == 0 {
		return nil, fmt.Errorf("%w: route has no geometry", ErrInvalidSession)
	}

	clk := clock.OrReal(cfg.Clock)
	s := &Session{
		id:         uuid.NewString(),
		route:      route,
		thresholds: cfg.Thresholds.withDefaults(),
		logger:     cfg.Logger,
		clock:      clk,
		onProgress: cfg.OnProgress,
		state:      StateIdle,
		updatedAt:  clk.Now(),
	}

	steps := route.Candidate.Steps()
	for _, step := range steps[1:] {
		s.distanceAfterStep += step.DistanceMeters
		s.durationAfterStep += step.DurationSeconds
	}

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Route returns the route being followed.
func (s *Session) Route() *planner.ScoredRoute { return s.route }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastPosition returns the last accepted position.
func (s *Session) LastPosition() (polyline.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return polyline.Coordinate{}, false
	}
	return *s.position, true
}

// Start moves an idle session to active.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: session is %s", ErrInvalidSession, s.state)
	}
	s.state = StateActive
	s.updatedAt = s.clock.Now()

	s.logger.Info().
		Str("session_id", s.id).
		Str("route_id", s.route.ID).
		Int("step_count", s.route.Candidate.NumSteps()).
		Msg("navigation started")
	return nil
}

// Update feeds one position sample and returns the resulting progress.
//
// Arrival is checked first, then deviation, then step advancement; the step index
// moves forward by at most one per update and never moves back.
func (s *Session) Update(pos Position) (Progress, error) {
	if !pos.Valid() {
		return Progress{}, ErrInvalidPosition
	}

	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		return Progress{}, fmt.Errorf("%w: session is %s", ErrInvalidSession, state)
	}

	s.apply(pos)
	progress := s.snapshotLocked()
	s.mu.Unlock()

	if s.onProgress != nil {
		s.onProgress(progress)
	}
	return progress, nil
}

// apply performs the transitions for one position. Caller holds s.mu.
func (s *Session) apply(pos Position) {
	candidate := s.route.Candidate
	p := pos.Coordinate
	s.position = &p
	s.stepAdvanced = false
	s.updatedAt = pos.RecordedAt
	if s.updatedAt.IsZero() {
		s.updatedAt = s.clock.Now()
	}

	s.offRoute = candidate.DistanceToPolyline(p)
	s.cumulativeOffRoute += s.offRoute

	if polyline.Haversine(p, candidate.Destination()) < s.thresholds.ArrivalMeters {
		s.finish(StateArrived)
		return
	}

	if s.offRoute > s.thresholds.DeviationMeters {
		s.finish(StateDeviated)
		return
	}

	last := candidate.NumSteps() - 1
	if s.stepIndex < last && polyline.Haversine(p, candidate.Step(s.stepIndex).End) < s.thresholds.StepAdvanceMeters {
		s.stepIndex++
		s.stepAdvanced = true
		next := candidate.Step(s.stepIndex)
		s.distanceAfterStep = math.Max(0, s.distanceAfterStep-next.DistanceMeters)
		s.durationAfterStep = math.Max(0, s.durationAfterStep-next.DurationSeconds)
	}
}

// Stop cancels the session and releases its position subscription. Stopping a
// session that already ended is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.finish(StateStopped)
}

// finish moves to a terminal state. Caller holds s.mu.
func (s *Session) finish(state State) {
	s.state = state
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.logger.Info().
		Str("session_id", s.id).
		Str("state", string(state)).
		Int("step_index", s.stepIndex).
		Float64("off_route_meters", s.offRoute).
		Msg("navigation ended")
}

// Run consumes positions until the channel closes, ctx is done, or the session
// leaves the active state. Invalid samples are skipped.
func (s *Session) Run(ctx context.Context, positions <-chan Position) error {
	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrInvalidSession, state)
	}
	ctx, cancel := context.WithCancel(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if s.State().Terminal() {
				return nil
			}
			return ctx.Err()
		case pos, ok := <-positions:
			if !ok {
				return nil
			}
			_, err := s.Update(pos)
			switch {
			case errors.Is(err, ErrInvalidPosition):
				s.logger.Warn().
					Str("session_id", s.id).
					Float64("lat", pos.Lat).
					Float64("lon", pos.Lon).
					Msg("skipping invalid position")
			case err != nil:
				return nil
			}
			if s.State().Terminal() {
				return nil
			}
		}
	}
}

// Progress returns the current snapshot.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a Progress. Caller holds s.mu.
func (s *Session) snapshotLocked() Progress {
	candidate := s.route.Candidate
	step := candidate.Step(s.stepIndex)

	toManeuver := step.DistanceMeters
	if s.position != nil {
		toManeuver = polyline.Haversine(*s.position, step.End)
	}

	// The current step contributes the part still ahead, in proportion to its duration.
	currentDuration := step.DurationSeconds
	if step.DistanceMeters > 0 {
		currentDuration = step.DurationSeconds * math.Min(1, toManeuver/step.DistanceMeters)
	}

	p := Progress{
		SessionID:                s.id,
		RouteID:                  s.route.ID,
		State:                    s.state,
		StepIndex:                s.stepIndex,
		StepCount:                candidate.NumSteps(),
		Instruction:              step.Instruction,
		Maneuver:                 step.Maneuver,
		DistanceToManeuverMeters: toManeuver,
		DistanceToManeuver:       FormatDistance(toManeuver),
		RemainingDistanceMeters:  s.distanceAfterStep + toManeuver,
		RemainingDurationSeconds: s.durationAfterStep + currentDuration,
		OffRouteMeters:           s.offRoute,
		CumulativeOffRouteMeters: s.cumulativeOffRoute,
		StepAdvanced:             s.stepAdvanced,
		UpdatedAt:                s.updatedAt,
	}
	if s.position != nil {
		pos := *s.position
		p.Position = &pos
	}
	if s.state == StateArrived {
		p.RemainingDistanceMeters = 0
		p.RemainingDurationSeconds = 0
		p.DistanceToManeuverMeters = 0
		p.DistanceToManeuver = FormatDistance(0)
	}
	return p
}

// FormatDistance renders meters below one kilometre as whole meters and longer
// distances as kilometres with one decimal.
func FormatDistance(meters float64) string {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	if math.Round(meters) < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
