// Package reports stores community safety reports.
package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Sentinel errors for report storage.
var (
	// ErrStoreUnavailable indicates the report store could not be queried.
	ErrStoreUnavailable = errors.New("report store unavailable")
	// ErrInvalidReport indicates a report failed validation.
	ErrInvalidReport = errors.New("invalid report")
)

// Severity classifies how much a report should weigh against a route.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// Report categories with a fixed severity. Any other category is minor.
const (
	CategoryIncident     = "incident"
	CategoryAssault      = "assault"
	CategoryCrime        = "crime"
	CategoryHarassment   = "harassment"
	CategoryPoorLighting = "poor-lighting"
	CategorySuspicious   = "suspicious"
)

// SeverityFor returns the severity of a report category.
func SeverityFor(category string) Severity {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case CategoryIncident, CategoryAssault, CategoryCrime, CategoryHarassment:
		return SeverityCritical
	case CategoryPoorLighting, CategorySuspicious:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

// Report is a safety concern submitted by a user at a location.
type Report struct {
	ID          string
	UserID      string
	Location    polyline.Coordinate
	Category    string
	Severity    Severity
	Description string
	CreatedAt   time.Time
}

// Validate checks the report can be stored.
func (r *Report) Validate() error {
	if !r.Location.Valid() {
		return errors.Join(ErrInvalidReport, errors.New("location out of range"))
	}
	if strings.TrimSpace(r.Category) == "" {
		return errors.Join(ErrInvalidReport, errors.New("category is required"))
	}
	return nil
}
