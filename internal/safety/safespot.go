package safety

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// SafeSpotAnalyzer scores how close the route passes to places a pedestrian can
// seek help at: hospitals, police stations and convenience stores.
type SafeSpotAnalyzer struct {
	cfg    Config
	places places.Provider
}

// NewSafeSpotAnalyzer creates a safe-spot analyzer. provider may be nil.
func NewSafeSpotAnalyzer(cfg Config, provider places.Provider) *SafeSpotAnalyzer {
	return &SafeSpotAnalyzer{cfg: cfg.withDefaults(), places: provider}
}

// Factor returns FactorSafeSpots.
func (a *SafeSpotAnalyzer) Factor() Factor { return FactorSafeSpots }

type nearestSpot struct {
	place    places.Place
	distance float64
}

// Analyze finds the nearest safe spot to any sampled point and scores by distance band.
func (a *SafeSpotAnalyzer) Analyze(ctx context.Context, in Input) FactorScore {
	nearest, found, ok := a.findNearest(ctx, polyline.SampleEvenly(in.Points, a.cfg.SampleCount))
	if !ok {
		return defaulted(FactorSafeSpots, 5, in.Slot, "Safe-spot data unavailable")
	}
	if nearest == nil {
		return FactorScore{
			Factor:      FactorSafeSpots,
			Score:       2,
			Explanation: fmt.Sprintf("No hospital, police or 24-hour store within %.0f m", a.cfg.SafeSpotRadiusMeters),
			Evidence:    intPtr(0),
		}
	}

	score := safeSpotBand(nearest.distance)
	explanation := fmt.Sprintf("Nearest safe spot %q is %.0f m from the route", nearest.place.Name, nearest.distance)
	if nearest.place.IsOpenNow() {
		score++
		explanation += " and open now"
	}

	return FactorScore{
		Factor:      FactorSafeSpots,
		Score:       round1(clamp(score)),
		Explanation: explanation,
		Evidence:    intPtr(found),
	}
}

// safeSpotBand maps the distance to the nearest safe spot onto a base score.
func safeSpotBand(distance float64) float64 {
	switch {
	case distance < 200:
		return 9
	case distance < 500:
		return 7
	case distance < 1000:
		return 5
	default:
		return 2
	}
}

// findNearest returns the closest safe spot, the number of distinct spots seen, and
// whether at least one lookup succeeded. Closer wins; at equal distance an open
// spot wins.
func (a *SafeSpotAnalyzer) findNearest(ctx context.Context, points []polyline.Coordinate) (*nearestSpot, int, bool) {
	if a.places == nil || len(points) == 0 {
		return nil, 0, false
	}

	var (
		mu        sync.Mutex
		nearest   *nearestSpot
		seen      = make(map[string]struct{})
		succeeded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.LookupConcurrency)
	for _, p := range points {
		for _, category := range places.SafeSpotCategories {
			g.Go(func() error {
				found, err := a.places.Nearby(gctx, p, a.cfg.SafeSpotRadiusMeters, category)
				if err != nil {
					a.cfg.Logger.Debug().Err(err).Str("category", string(category)).Msg("safe-spot lookup failed")
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				succeeded = true
				for _, place := range found {
					if !place.Location.Valid() {
						continue
					}
					key := place.ID
					if key == "" {
						key = fmt.Sprintf("%s@%.5f,%.5f", place.Name, place.Location.Lat, place.Location.Lon)
					}
					seen[key] = struct{}{}

					d := polyline.Haversine(p, place.Location)
					if nearest == nil || d < nearest.distance ||
						(d == nearest.distance && place.IsOpenNow() && !nearest.place.IsOpenNow()) {
						nearest = &nearestSpot{place: place, distance: d}
					}
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	return nearest, len(seen), succeeded
}
