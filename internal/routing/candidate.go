package routing

import (
	"errors"
	"fmt"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// WalkingSpeedMetersPerSecond is the pace assumed when a duration has to be estimated.
const WalkingSpeedMetersPerSecond = 1.4

// Step is a single turn-by-turn instruction of a route candidate.
type Step struct {
	Instruction     string
	Maneuver        Maneuver
	Start           Coordinate
	End             Coordinate
	DistanceMeters  float64
	DurationSeconds float64
}

// RouteCandidate is a decoded route. It is immutable once built: accessors return
// copies and nothing in the package mutates a candidate after construction, so a
// candidate may be shared freely between goroutines.
type RouteCandidate struct {
	points          []Coordinate
	steps           []Step
	distanceMeters  float64
	durationSeconds float64
	summary         string
	synthetic       bool
}

// NewCandidate builds a candidate from already-decoded parts. Invalid points are
// dropped and the inputs are copied.
func NewCandidate(points []Coordinate, steps []Step, distanceMeters, durationSeconds float64, summary string) *RouteCandidate {
	pts := make([]Coordinate, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			pts = append(pts, p)
		}
	}

	if distanceMeters <= 0 {
		distanceMeters = polyline.Length(pts)
	}
	if durationSeconds <= 0 {
		durationSeconds = distanceMeters / WalkingSpeedMetersPerSecond
	}

	return &RouteCandidate{
		points:          pts,
		steps:           normalizeSteps(pts, steps, distanceMeters, durationSeconds),
		distanceMeters:  distanceMeters,
		durationSeconds: durationSeconds,
		summary:         summary,
	}
}

// ErrEmptyGeometry indicates a raw route decoded to zero usable points.
var ErrEmptyGeometry = errors.New("route has no usable points")

// FromRaw decodes a provider route into a candidate.
//
// A malformed overview polyline does not discard the route: the valid prefix is kept
// and the decode error is returned alongside the candidate. When the overview polyline
// is missing, the step polylines are stitched together instead.
func FromRaw(raw RawRoute) (*RouteCandidate, error) {
	var (
		points    []Coordinate
		decodeErr error
	)

	if raw.Polyline != "" {
		points, decodeErr = polyline.Decode(raw.Polyline)
	} else {
		for _, s := range raw.Steps {
			pts, err := polyline.Decode(s.Polyline)
			if err != nil && decodeErr == nil {
				decodeErr = err
			}
			if len(points) > 0 && len(pts) > 0 && points[len(points)-1] == pts[0] {
				pts = pts[1:]
			}
			points = append(points, pts...)
		}
	}

	if len(points) == 0 {
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmptyGeometry, decodeErr)
		}
		return nil, ErrEmptyGeometry
	}

	steps := make([]Step, 0, len(raw.Steps))
	for _, rs := range raw.Steps {
		start, end := rs.Start, rs.End
		if !start.Valid() || !end.Valid() {
			// Fall back to the step's own geometry for its endpoints.
			pts, _ := polyline.Decode(rs.Polyline)
			if len(pts) == 0 {
				continue
			}
			if !start.Valid() {
				start = pts[0]
			}
			if !end.Valid() {
				end = pts[len(pts)-1]
			}
		}
		steps = append(steps, Step{
			Instruction:     rs.Instruction,
			Maneuver:        ParseManeuver(rs.Maneuver),
			Start:           start,
			End:             end,
			DistanceMeters:  rs.DistanceMeters,
			DurationSeconds: rs.DurationSeconds,
		})
	}

	return NewCandidate(points, steps, raw.DistanceMeters, raw.DurationSeconds, raw.Summary), decodeErr
}

// normalizeSteps guarantees at least one movement step and a terminal arrive step.
func normalizeSteps(points []Coordinate, steps []Step, distance, duration float64) []Step {
	if len(points) == 0 {
		return nil
	}

	origin := points[0]
	destination := points[len(points)-1]

	out := make([]Step, 0, len(steps)+1)
	out = append(out, steps...)

	if len(out) == 0 {
		out = append(out, Step{
			Instruction:     "Head towards your destination",
			Maneuver:        ManeuverStraight,
			Start:           origin,
			End:             destination,
			DistanceMeters:  distance,
			DurationSeconds: duration,
		})
	}

	if out[len(out)-1].Maneuver != ManeuverArrive {
		out = append(out, Step{
			Instruction: "Arrive at your destination",
			Maneuver:    ManeuverArrive,
			Start:       destination,
			End:         destination,
		})
	}
	return out
}

// Points returns a copy of the decoded geometry.
func (c *RouteCandidate) Points() []Coordinate {
	out := make([]Coordinate, len(c.points))
	copy(out, c.points)
	return out
}

// NumPoints returns the number of points in the geometry.
func (c *RouteCandidate) NumPoints() int { return len(c.points) }

// Origin returns the first point of the geometry.
func (c *RouteCandidate) Origin() Coordinate {
	if len(c.points) == 0 {
		return Coordinate{}
	}
	return c.points[0]
}

// Destination returns the last point of the geometry.
func (c *RouteCandidate) Destination() Coordinate {
	if len(c.points) == 0 {
		return Coordinate{}
	}
	return c.points[len(c.points)-1]
}

// Steps returns a copy of the ordered steps.
func (c *RouteCandidate) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// NumSteps returns the number of steps.
func (c *RouteCandidate) NumSteps() int { return len(c.steps) }

// Step returns the i-th step.
func (c *RouteCandidate) Step(i int) Step { return c.steps[i] }

// DistanceToPolyline returns the distance in meters from p to the route geometry.
func (c *RouteCandidate) DistanceToPolyline(p Coordinate) float64 {
	return polyline.DistanceToPolyline(p, c.points)
}

// DistanceMeters returns the total distance.
func (c *RouteCandidate) DistanceMeters() float64 { return c.distanceMeters }

// DurationSeconds returns the total duration.
func (c *RouteCandidate) DurationSeconds() float64 { return c.durationSeconds }

// Summary returns the provider-assigned summary.
func (c *RouteCandidate) Summary() string { return c.summary }

// Synthetic reports whether the candidate was fabricated because the provider had
// nothing usable.
func (c *RouteCandidate) Synthetic() bool { return c.synthetic }

// Encoded returns the geometry as an encoded polyline.
func (c *RouteCandidate) Encoded() string { return polyline.Encode(c.points) }
