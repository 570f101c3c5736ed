// Package safety scores route geometry on five independent safety factors and
// aggregates them into a single score and label.
//
// Analyzers never fail: when an upstream lookup is missing or errors, an analyzer
// falls back to a time-of-day or count-based default and marks its score Defaulted.
package safety

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/imagery"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/reports"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// Score bounds shared by every factor and the aggregate.
const (
	MinScore = 1.0
	MaxScore = 10.0
)

// Factor names one of the five safety factors.
type Factor string

const (
	FactorLighting          Factor = "lighting"
	FactorPedestrianDensity Factor = "pedestrian_density"
	FactorSafeSpots         Factor = "safe_spot_proximity"
	FactorCommunityReports  Factor = "community_reports"
	FactorHistoricalRisk    Factor = "historical_risk"
)

// Factors lists every factor in reporting order.
var Factors = []Factor{
	FactorLighting,
	FactorPedestrianDensity,
	FactorSafeSpots,
	FactorCommunityReports,
	FactorHistoricalRisk,
}

// FactorScore is one analyzer's verdict on a route.
type FactorScore struct {
	Factor      Factor
	Score       float64 // always within [MinScore, MaxScore]
	Explanation string
	// Evidence is the raw count behind the score, such as light sources or reports.
	Evidence *int
	// Defaulted is set when the score came from a fallback rather than upstream data.
	Defaulted bool
}

// Input is the route data an analyzer sees.
type Input struct {
	Points []polyline.Coordinate
	// Slot is the candidate's ordinal (1..3). It only feeds a small separation bias.
	Slot int
}

// Analyzer scores one safety factor. Analyze must not fail; it returns a
// defaulted score instead.
type Analyzer interface {
	Factor() Factor
	Analyze(ctx context.Context, in Input) FactorScore
}

// Config holds tunables shared by the analyzers.
type Config struct {
	Logger zerolog.Logger

	// Clock is the time source for time-of-day rules (default: wall clock).
	Clock clock.Clock

	// Location is the local time zone for time-of-day rules (default: time.Local).
	Location *time.Location

	// SampleCount is the maximum number of route points an analyzer looks up (default: 5).
	SampleCount int

	// DensityRadiusMeters is the establishment search radius per point (default: 200).
	DensityRadiusMeters float64

	// SafeSpotRadiusMeters is the safe-spot search radius per point (default: 1000).
	SafeSpotRadiusMeters float64

	// ReportWindow is how far back community reports count (default: 7 days).
	ReportWindow time.Duration

	// ReportRadiusMeters is how close a report must be to a route point (default: 500).
	ReportRadiusMeters float64

	// LookupConcurrency bounds concurrent lookups inside one analyzer (default: 4).
	LookupConcurrency int

	// AnalyzerTimeout bounds a single analyzer run; zero means no bound.
	AnalyzerTimeout time.Duration
}

func (c Config) withDefaults() Config {
	c.Clock = clock.OrReal(c.Clock)
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.SampleCount <= 0 {
		c.SampleCount = 5
	}
	if c.DensityRadiusMeters <= 0 {
		c.DensityRadiusMeters = 200
	}
	if c.SafeSpotRadiusMeters <= 0 {
		c.SafeSpotRadiusMeters = 1000
	}
	if c.ReportWindow <= 0 {
		c.ReportWindow = 7 * 24 * time.Hour
	}
	if c.ReportRadiusMeters <= 0 {
		c.ReportRadiusMeters = 500
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = 4
	}
	return c
}

// localHour returns the current hour in the configured zone.
func (c Config) localHour() int {
	return c.Clock.Now().In(c.Location).Hour()
}

// Dependencies are the external lookups the analyzers consult. Any may be nil.
type Dependencies struct {
	Inspector imagery.Inspector
	Places    places.Provider
	Reports   reports.Store
}

// clamp bounds a score to [MinScore, MaxScore]; NaN becomes MinScore.
func clamp(score float64) float64 {
	if math.IsNaN(score) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// slotBias keeps sparse-data candidates from collapsing onto identical scores.
func slotBias(slot int) float64 {
	switch slot {
	case 1:
		return 0.3
	case 3:
		return -0.3
	default:
		return 0
	}
}

// defaulted builds a fallback score with the slot bias applied.
func defaulted(factor Factor, base float64, slot int, explanation string) FactorScore {
	return FactorScore{
		Factor:      factor,
		Score:       round1(clamp(base + slotBias(slot))),
		Explanation: explanation,
		Defaulted:   true,
	}
}

func intPtr(v int) *int { return &v }
