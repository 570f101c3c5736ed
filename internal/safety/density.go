package safety

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// DensityAnalyzer estimates how many people are likely to be around.
type DensityAnalyzer struct {
	cfg    Config
	places places.Provider
}

// NewDensityAnalyzer creates a pedestrian-density analyzer. provider may be nil.
func NewDensityAnalyzer(cfg Config, provider places.Provider) *DensityAnalyzer {
	return &DensityAnalyzer{cfg: cfg.withDefaults(), places: provider}
}

// Factor returns FactorPedestrianDensity.
func (a *DensityAnalyzer) Factor() Factor { return FactorPedestrianDensity }

// Analyze derives a score from the number of establishments near sampled points,
// with a bonus at peak hours and a penalty late at night.
func (a *DensityAnalyzer) Analyze(ctx context.Context, in Input) FactorScore {
	hour := a.cfg.localHour()

	counts := a.countNearby(ctx, polyline.SampleEvenly(in.Points, a.cfg.SampleCount))
	if len(counts) == 0 {
		return defaulted(FactorPedestrianDensity, a.fallback(hour), in.Slot, "Estimated from time of day; place data unavailable")
	}

	total := 0
	for _, c := range counts {
		total += int(c)
	}
	avgPlaces := stat.Mean(counts, nil)

	multiplier := 1.0
	note := ""
	switch {
	case isPeakHour(hour):
		multiplier = 1.2
		note = ", peak hours"
	case isLateNight(hour):
		multiplier = 0.5
		note = ", late night"
	}

	score := (2 + 0.8*avgPlaces) * multiplier

	return FactorScore{
		Factor:      FactorPedestrianDensity,
		Score:       round1(clamp(score)),
		Explanation: fmt.Sprintf("%.1f establishments near each sampled point%s", avgPlaces, note),
		Evidence:    intPtr(total),
	}
}

func (a *DensityAnalyzer) fallback(hour int) float64 {
	switch {
	case isPeakHour(hour):
		return 6
	case isLateNight(hour):
		return 3
	case isDaytime(hour):
		return 5.5
	default:
		return 4.5
	}
}

// countNearby returns one establishment count per point whose lookup succeeded.
func (a *DensityAnalyzer) countNearby(ctx context.Context, points []polyline.Coordinate) []float64 {
	if a.places == nil || len(points) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		counts []float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.LookupConcurrency)
	for _, p := range points {
		g.Go(func() error {
			found, err := a.places.Nearby(gctx, p, a.cfg.DensityRadiusMeters, places.CategoryAny)
			if err != nil {
				a.cfg.Logger.Debug().Err(err).Msg("density lookup failed")
				return nil
			}
			mu.Lock()
			counts = append(counts, float64(len(found)))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return counts
}
