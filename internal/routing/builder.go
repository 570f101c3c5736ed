package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Default builder parameters.
const (
	DefaultDuplicateTolerance = 0.05
	DefaultMaxCandidates      = 3
)

// BuilderConfig holds configuration for the route candidate builder.
type BuilderConfig struct {
	// Provider is the directions provider, usually a cached Service.
	Provider Provider

	// Logger for builder operations.
	Logger zerolog.Logger

	// DuplicateTolerance is the relative difference in both distance and duration
	// below which two candidates are considered the same route (default: 0.05).
	DuplicateTolerance float64

	// MaxCandidates caps the number of candidates returned (default: 3).
	MaxCandidates int
}

// BuildOptions are the per-request flags passed to the provider.
type BuildOptions struct {
	Profile       RouteProfile
	Alternatives  bool
	AvoidHighways bool
}

// Builder requests directions and turns them into a deduplicated candidate list.
type Builder struct {
	provider      Provider
	logger        zerolog.Logger
	tolerance     float64
	maxCandidates int
}

// NewBuilder creates a new candidate builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	tolerance := cfg.DuplicateTolerance
	if tolerance <= 0 {
		tolerance = DefaultDuplicateTolerance
	}

	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	return &Builder{
		provider:      cfg.Provider,
		logger:        cfg.Logger,
		tolerance:     tolerance,
		maxCandidates: maxCandidates,
	}
}

// Build returns up to MaxCandidates unique candidates in provider order.
//
// When the first pass yields fewer than MaxCandidates unique candidates, a second pass
// is made with the avoid-highways flag flipped to surface a geometrically distinct
// option. Provider failures of any kind count as zero candidates for that pass; an
// empty result with a nil error means the caller should fall back to Synthesize.
// The only error returned is ErrInvalidCoordinates for an invalid origin or destination.
func (b *Builder) Build(ctx context.Context, origin, destination Coordinate, opts BuildOptions) ([]*RouteCandidate, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("origin: %w", ErrInvalidCoordinates)
	}
	if !destination.Valid() {
		return nil, fmt.Errorf("destination: %w", ErrInvalidCoordinates)
	}

	profile := opts.Profile
	if !profile.Valid() {
		profile = ProfileWalk
	}

	req := DirectionsRequest{
		Origin:        origin,
		Destination:   destination,
		Profile:       profile,
		Alternatives:  opts.Alternatives,
		AvoidHighways: opts.AvoidHighways,
	}

	candidates := b.dedupe(b.fetch(ctx, req))

	if len(candidates) < b.maxCandidates {
		req.AvoidHighways = !req.AvoidHighways
		second := b.fetch(ctx, req)
		candidates = b.dedupe(append(candidates, second...))
	}

	if len(candidates) > b.maxCandidates {
		candidates = candidates[:b.maxCandidates]
	}

	b.logger.Debug().
		Int("candidate_count", len(candidates)).
		Str("profile", string(profile)).
		Msg("built route candidates")

	return candidates, nil
}

// fetch performs one provider pass and decodes the usable routes.
func (b *Builder) fetch(ctx context.Context, req DirectionsRequest) []*RouteCandidate {
	if b.provider == nil {
		return nil
	}

	resp, err := b.provider.GetDirections(ctx, req)
	if err != nil {
		event := b.logger.Warn().Err(err).
			Bool("avoid_highways", req.AvoidHighways).
			Str("provider", b.provider.Name())
		var routingErr *Error
		if errors.As(err, &routingErr) {
			event = event.Str("error_code", routingErr.Code)
		}
		event.Msg("directions pass yielded no candidates")
		return nil
	}
	if resp == nil {
		return nil
	}

	out := make([]*RouteCandidate, 0, len(resp.Routes))
	for i, raw := range resp.Routes {
		c, err := FromRaw(raw)
		if err != nil {
			b.logger.Warn().Err(err).
				Int("route_index", i).
				Msg("route geometry malformed")
		}
		// Discard candidates with zero decoded points.
		if c == nil || c.NumPoints() == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupe keeps the first-seen candidate of every duplicate cluster, preserving order.
func (b *Builder) dedupe(candidates []*RouteCandidate) []*RouteCandidate {
	out := make([]*RouteCandidate, 0, len(candidates))
	for _, c := range candidates {
		duplicate := false
		for _, kept := range out {
			if b.isDuplicate(kept, c) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, c)
		}
	}
	return out
}

// isDuplicate reports whether a and b differ by less than the tolerance in both
// distance and duration.
func (b *Builder) isDuplicate(a, c *RouteCandidate) bool {
	return relativeDifference(a.DistanceMeters(), c.DistanceMeters()) < b.tolerance &&
		relativeDifference(a.DurationSeconds(), c.DurationSeconds()) < b.tolerance
}

// relativeDifference returns |x-y| relative to the larger magnitude.
func relativeDifference(x, y float64) float64 {
	larger := math.Max(math.Abs(x), math.Abs(y))
	if larger == 0 {
		return 0
	}
	return math.Abs(x-y) / larger
}
