package routing

import "github.com/saferoute/saferoute/pkg/polyline"

// SyntheticSummary is the summary carried by fabricated candidates.
const SyntheticSummary = "Direct path (provider unavailable)"

// syntheticSpacingMeters is the distance between interpolated points.
const syntheticSpacingMeters = 50

// Synthesize fabricates a straight-line candidate between origin and destination for
// use when the provider yields nothing usable. The result is flagged Synthetic.
func Synthesize(origin, destination Coordinate) *RouteCandidate {
	points := polyline.Interpolate(origin, destination, syntheticSpacingMeters)
	distance := polyline.Haversine(origin, destination)
	duration := distance / WalkingSpeedMetersPerSecond

	steps := []Step{{
		Instruction:     "Walk directly towards your destination",
		Maneuver:        ManeuverStraight,
		Start:           origin,
		End:             destination,
		DistanceMeters:  distance,
		DurationSeconds: duration,
	}}

	c := NewCandidate(points, steps, distance, duration, SyntheticSummary)
	c.synthetic = true
	return c
}
