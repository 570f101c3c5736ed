package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Profile is the travel mode requested by the client.
type Profile string

const (
	ProfileWalk  Profile = "WALK"
	ProfileBike  Profile = "BIKE"
	ProfileDrive Profile = "DRIVE"
)

// RouteComputeRequest is the request body for computing routes.
type RouteComputeRequest struct {
	Origin        *Point  `json:"origin"`
	Destination   *Point  `json:"destination"`
	Profile       Profile `json:"profile,omitempty"`
	Alternatives  *bool   `json:"alternatives,omitempty"`
	AvoidHighways bool    `json:"avoidHighways,omitempty"`
}

// RouteComputeResponse is the response for route computation. Routes are ranked
// safest first.
type RouteComputeResponse struct {
	GeneratedAt Timestamp     `json:"generatedAt"`
	Routes      []ScoredRoute `json:"routes"`
	Warnings    []Warning     `json:"warnings,omitempty"`
}

// ScoredRoute is a route option with its safety assessment.
type ScoredRoute struct {
	ID              string            `json:"id"`
	Rank            int               `json:"rank,omitempty"`
	Summary         string            `json:"summary"`
	DistanceMeters  int               `json:"distanceMeters"`
	DurationSeconds int               `json:"durationSeconds"`
	Geometry        *geojson.Geometry `json:"geometry"`
	Steps           []Instruction     `json:"steps"`
	Safety          SafetyAssessment  `json:"safety"`
	// Synthetic marks a straight-line route produced while the directions provider was unavailable.
	Synthetic bool `json:"synthetic"`
	// Degraded is set when any safety factor fell back to a default.
	Degraded bool      `json:"degraded"`
	ScoredAt Timestamp `json:"scoredAt"`
}

// Instruction is one navigation step.
type Instruction struct {
	Text            string `json:"text"`
	Maneuver        string `json:"maneuver"`
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	Start           Point  `json:"start"`
	End             Point  `json:"end"`
}

// SafetyAssessment is the aggregate safety score of a route.
type SafetyAssessment struct {
	Score   float64        `json:"score"`
	Label   string         `json:"label"`
	Factors []SafetyFactor `json:"factors"`
}

// SafetyFactor is one scored factor of a safety assessment.
type SafetyFactor struct {
	Factor      string  `json:"factor"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	Evidence    *int    `json:"evidence,omitempty"`
	Defaulted   bool    `json:"defaulted"`
}

// LineString converts route points to a GeoJSON geometry. GeoJSON orders
// positions longitude first.
func LineString(points []polyline.Coordinate) *geojson.Geometry {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return geojson.NewGeometry(ls)
}
