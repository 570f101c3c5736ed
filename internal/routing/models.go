// Package routing turns raw directions-provider output into immutable route candidates.
package routing

import (
	"context"
	"time"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Coordinate represents a geographic point.
type Coordinate = polyline.Coordinate

// Provider defines the interface for directions providers.
type Provider interface {
	// GetDirections retrieves route directions between two points.
	// Returns multiple route alternatives when requested and available.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// RouteProfile represents a routing profile (mode of transport).
type RouteProfile string

const (
	// ProfileWalk is the pedestrian profile.
	ProfileWalk RouteProfile = "walking"
	// ProfileBike is the cycling profile.
	ProfileBike RouteProfile = "bicycling"
	// ProfileDrive is the driving profile.
	ProfileDrive RouteProfile = "driving"
)

// Valid reports whether p is a known profile.
func (p RouteProfile) Valid() bool {
	switch p {
	case ProfileWalk, ProfileBike, ProfileDrive:
		return true
	}
	return false
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin        Coordinate
	Destination   Coordinate
	Profile       RouteProfile
	Alternatives  bool // Ask the provider for alternative routes
	AvoidHighways bool // Ask the provider to avoid highways
}

// DirectionsResponse is the response containing route alternatives.
type DirectionsResponse struct {
	Routes    []RawRoute
	Provider  string
	FetchedAt time.Time
}

// RawRoute is a single route as returned by a provider, before decoding.
type RawRoute struct {
	Polyline        string    // Encoded overview polyline (precision 5)
	DistanceMeters  float64   // Total distance in meters
	DurationSeconds float64   // Total duration in seconds
	Summary         string    // Provider-assigned summary
	Steps           []RawStep // Ordered turn-by-turn steps
}

// RawStep is a single provider step.
type RawStep struct {
	Instruction     string // Human-readable instruction, markup stripped
	Maneuver        string // Provider maneuver tag, may be empty
	Polyline        string // Encoded step polyline
	Start           Coordinate
	End             Coordinate
	DistanceMeters  float64
	DurationSeconds float64
}
