package safety

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/saferoute/saferoute/internal/imagery"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// LightingAnalyzer scores how well lit a route is.
type LightingAnalyzer struct {
	cfg       Config
	inspector imagery.Inspector
}

// NewLightingAnalyzer creates a lighting analyzer. inspector may be nil.
func NewLightingAnalyzer(cfg Config, inspector imagery.Inspector) *LightingAnalyzer {
	return &LightingAnalyzer{cfg: cfg.withDefaults(), inspector: inspector}
}

// Factor returns FactorLighting.
func (a *LightingAnalyzer) Factor() Factor { return FactorLighting }

// Analyze scores daylight hours at the maximum. After dark the score comes from the
// light sources and brightness found at sampled points, reduced as the night wears on.
func (a *LightingAnalyzer) Analyze(ctx context.Context, in Input) FactorScore {
	hour := a.cfg.localHour()
	if isDaytime(hour) {
		return FactorScore{
			Factor:      FactorLighting,
			Score:       MaxScore,
			Explanation: "Daylight hours",
		}
	}

	inspections := a.inspect(ctx, polyline.SampleEvenly(in.Points, a.cfg.SampleCount))
	if len(inspections) == 0 {
		return defaulted(FactorLighting, a.fallback(hour), in.Slot, "Estimated from time of day; street imagery unavailable")
	}

	lights := make([]float64, len(inspections))
	brightness := make([]float64, len(inspections))
	total := 0
	for i, insp := range inspections {
		lights[i] = float64(insp.DetectedLightSources)
		brightness[i] = insp.Brightness
		total += insp.DetectedLightSources
	}

	avgLights := stat.Mean(lights, nil)
	avgBrightness := stat.Mean(brightness, nil)
	score := 3 + 1.2*avgLights + 3*avgBrightness - nightDegradation(hour)

	return FactorScore{
		Factor:      FactorLighting,
		Score:       round1(clamp(score)),
		Explanation: fmt.Sprintf("%.1f light sources per sampled point", avgLights),
		Evidence:    intPtr(total),
	}
}

// fallback is the time-of-day estimate used when no imagery could be inspected.
func (a *LightingAnalyzer) fallback(hour int) float64 {
	switch nightDegradation(hour) {
	case 0:
		return 6
	case 1:
		return 4.5
	default:
		return 3
	}
}

// inspect returns the successful inspections; failures are logged and skipped.
func (a *LightingAnalyzer) inspect(ctx context.Context, points []polyline.Coordinate) []imagery.Inspection {
	if a.inspector == nil || len(points) == 0 {
		return nil
	}

	var (
		mu  sync.Mutex
		out []imagery.Inspection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.LookupConcurrency)
	for _, p := range points {
		g.Go(func() error {
			insp, err := a.inspector.Inspect(gctx, p)
			if err != nil {
				a.cfg.Logger.Debug().Err(err).
					Float64("lat", p.Lat).
					Float64("lon", p.Lon).
					Msg("lighting inspection failed")
				return nil
			}
			mu.Lock()
			out = append(out, insp.Normalize())
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}
