// Package places looks up points of interest near a location.
package places

import (
	"context"
	"errors"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Sentinel errors for places lookups.
var (
	// ErrProviderUnavailable indicates the places provider failed or is over quota.
	ErrProviderUnavailable = errors.New("places provider unavailable")
	// ErrInvalidCoordinates indicates the lookup point is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Category narrows a nearby search.
type Category string

const (
	// CategoryAny matches every establishment.
	CategoryAny Category = ""
	// CategoryHospital matches hospitals.
	CategoryHospital Category = "hospital"
	// CategoryPolice matches police stations.
	CategoryPolice Category = "police"
	// CategoryConvenienceStore matches convenience stores, often open around the clock.
	CategoryConvenienceStore Category = "convenience_store"
)

// SafeSpotCategories are the categories a pedestrian can seek help at.
var SafeSpotCategories = []Category{CategoryHospital, CategoryPolice, CategoryConvenienceStore}

// Place is a point of interest.
type Place struct {
	ID       string
	Name     string
	Location polyline.Coordinate
	Category Category
	// OpenNow is nil when the provider has no opening-hours data.
	OpenNow *bool
}

// IsOpenNow reports whether the place is known to be open.
func (p Place) IsOpenNow() bool {
	return p.OpenNow != nil && *p.OpenNow
}

// Provider finds places near a point.
type Provider interface {
	// Nearby returns places within radiusMeters of point. An empty category matches
	// all establishments.
	Nearby(ctx context.Context, point polyline.Coordinate, radiusMeters float64, category Category) ([]Place, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}
