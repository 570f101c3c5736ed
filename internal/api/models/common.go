// Package models provides request and response models for the SafeRoute API.
package models

import (
	"encoding/json"
	"time"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewPoint converts a coordinate.
func NewPoint(c polyline.Coordinate) Point {
	return Point{Lat: c.Lat, Lon: c.Lon}
}

// Coordinate converts the point for the domain packages.
func (p Point) Coordinate() polyline.Coordinate {
	return polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// FieldErrors returns validation errors for the point under the given field name.
func (p *Point) FieldErrors(field string) []FieldError {
	if p == nil {
		return []FieldError{{Field: field, Message: "required", Code: "REQUIRED"}}
	}
	var errs []FieldError
	if p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, FieldError{Field: field + ".lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	if p.Lon < -180 || p.Lon > 180 {
		errs = append(errs, FieldError{Field: field + ".lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// HealthStatus is the coarse state reported by the ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Warning flags a degraded but usable answer, e.g. a synthetic route.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarningSyntheticRoute   = "SYNTHETIC_ROUTE"
	WarningDefaultedFactors = "DEFAULTED_FACTORS"
)

// Timestamp marshals as RFC 3339 in UTC with second precision, the form
// every SafeRoute client parses.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
