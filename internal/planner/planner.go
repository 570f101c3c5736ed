// Package planner turns an origin and destination into ranked, safety-scored routes.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// ErrNoRouteFound is returned when no usable route exists and the synthetic
// fallback is disabled. It is the one routing failure callers must handle.
var ErrNoRouteFound = errors.New("no route found")

// ErrRouteNotFound is returned by Route for unknown or expired route ids.
var ErrRouteNotFound = errors.New("route not found")

// CandidateBuilder produces deduplicated route candidates.
type CandidateBuilder interface {
	Build(ctx context.Context, origin, destination routing.Coordinate, opts routing.BuildOptions) ([]*routing.RouteCandidate, error)
}

// Scorer assesses the safety of a single route.
type Scorer interface {
	Score(ctx context.Context, in safety.Input) safety.Result
}

// Options are the per-request planning flags.
type Options struct {
	Profile       routing.RouteProfile
	Alternatives  bool
	AvoidHighways bool
}

// Config holds configuration for the planner.
type Config struct {
	Builder CandidateBuilder
	Scorer  Scorer

	// Logger for planner operations.
	Logger zerolog.Logger

	// Clock stamps ScoredAt (default: wall clock).
	Clock clock.Clock

	// Routes keeps planned routes addressable by id so a client can start
	// navigating one (default: bounded in-memory store).
	Routes cache.Store[*ScoredRoute]

	// RouteTTL is how long a planned route stays addressable (default: 1 hour).
	RouteTTL time.Duration

	// DisableSyntheticFallback makes Plan return ErrNoRouteFound instead of a
	// straight-line route when the provider yields nothing usable.
	DisableSyntheticFallback bool
}

// Planner orchestrates candidate building, scoring and ranking.
type Planner struct {
	builder           CandidateBuilder
	scorer            Scorer
	logger            zerolog.Logger
	clock             clock.Clock
	routes            cache.Store[*ScoredRoute]
	routeTTL          time.Duration
	syntheticFallback bool
}

// New creates a planner.
func New(cfg Config) *Planner {
	clk := clock.OrReal(cfg.Clock)

	routeTTL := cfg.RouteTTL
	if routeTTL <= 0 {
		routeTTL = time.Hour
	}

	routes := cfg.Routes
	if routes == nil {
		routes = cache.NewMemory[*ScoredRoute](cache.MemoryConfig{
			Capacity:  4096,
			Retention: routeTTL,
			Clock:     clk,
		})
	}

	scorer := cfg.Scorer
	if scorer == nil {
		// Every factor falls back to its default.
		scorer = safety.NewScorer(safety.Config{Logger: cfg.Logger, Clock: clk}, safety.Dependencies{})
	}

	return &Planner{
		builder:           cfg.Builder,
		scorer:            scorer,
		logger:            cfg.Logger,
		clock:             clk,
		routes:            routes,
		routeTTL:          routeTTL,
		syntheticFallback: !cfg.DisableSyntheticFallback,
	}
}

// Plan builds candidates between origin and destination, scores every one of them
// concurrently and returns them best first.
//
// Provider failures never surface: with no usable candidate Plan returns a single
// synthetic straight-line route, or ErrNoRouteFound when the fallback is disabled.
// Invalid coordinates fail with routing.ErrInvalidCoordinates.
func (p *Planner) Plan(ctx context.Context, origin, destination routing.Coordinate, opts Options) ([]*ScoredRoute, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("origin: %w", routing.ErrInvalidCoordinates)
	}
	if !destination.Valid() {
		return nil, fmt.Errorf("destination: %w", routing.ErrInvalidCoordinates)
	}

	var candidates []*routing.RouteCandidate
	if p.builder != nil {
		var err error
		candidates, err = p.builder.Build(ctx, origin, destination, routing.BuildOptions{
			Profile:       opts.Profile,
			Alternatives:  opts.Alternatives,
			AvoidHighways: opts.AvoidHighways,
		})
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		if !p.syntheticFallback {
			return nil, ErrNoRouteFound
		}
		p.logger.Warn().
			Float64("origin_lat", origin.Lat).
			Float64("origin_lon", origin.Lon).
			Msg("no usable route from provider, falling back to direct path")
		candidates = []*routing.RouteCandidate{routing.Synthesize(origin, destination)}
	}

	scored := p.scoreAll(ctx, candidates)
	rank(scored)

	for _, r := range scored {
		p.routes.Put(r.ID, r, p.routeTTL)
	}

	p.logger.Info().
		Int("route_count", len(scored)).
		Float64("best_score", scored[0].Overall()).
		Bool("degraded", scored[0].Degraded()).
		Msg("routes planned")

	return scored, nil
}

// Route returns a previously planned route by id.
func (p *Planner) Route(id string) (*ScoredRoute, error) {
	entry, ok := p.routes.Lookup(id)
	if !ok || !entry.Fresh(p.clock.Now()) {
		return nil, ErrRouteNotFound
	}
	return entry.Value, nil
}

// Rescore assesses an already planned route again and returns a new ScoredRoute;
// r itself is left untouched.
func (p *Planner) Rescore(ctx context.Context, r *ScoredRoute) *ScoredRoute {
	out := p.score(ctx, r.Candidate, r.Slot)
	p.routes.Put(out.ID, out, p.routeTTL)
	return out
}

// scoreAll scores candidates concurrently; slots follow builder order.
func (p *Planner) scoreAll(ctx context.Context, candidates []*routing.RouteCandidate) []*ScoredRoute {
	out := make([]*ScoredRoute, len(candidates))

	var g errgroup.Group
	for i, c := range candidates {
		g.Go(func() error {
			out[i] = p.score(ctx, c, i+1)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (p *Planner) score(ctx context.Context, c *routing.RouteCandidate, slot int) *ScoredRoute {
	return &ScoredRoute{
		ID:        uuid.NewString(),
		Slot:      slot,
		Candidate: c,
		Safety:    p.scorer.Score(ctx, safety.Input{Points: c.Points(), Slot: slot}),
		ScoredAt:  p.clock.Now(),
	}
}

// rank orders routes by score descending, then shorter duration, then slot.
func rank(routes []*ScoredRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Overall() != b.Overall() {
			return a.Overall() > b.Overall()
		}
		if a.Candidate.DurationSeconds() != b.Candidate.DurationSeconds() {
			return a.Candidate.DurationSeconds() < b.Candidate.DurationSeconds()
		}
		return a.Slot < b.Slot
	})
}
