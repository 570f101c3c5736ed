package main

import (
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/imagery"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/places/googleplaces"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/reports"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/routing/googledirections"
	"github.com/saferoute/saferoute/internal/routing/openrouteservice"
	"github.com/saferoute/saferoute/internal/safety"
)

type plannerDeps struct {
	Logger   zerolog.Logger
	Registry *resilience.Registry
	Metrics  resilience.Metrics
	Reports  reports.Store
}

// newPlanner wires providers behind their caches into a planner. Providers
// without credentials are left out; the analyzers they feed then score a
// defaulted neutral value and routing falls back to a synthetic route.
func newPlanner(cfg config.Config, deps plannerDeps) *planner.Planner {
	log := deps.Logger

	var directions []routing.Provider
	if cfg.Providers.GoogleMapsAPIKey != "" {
		directions = append(directions, googledirections.NewClient(googledirections.ClientConfig{
			APIKey:   cfg.Providers.GoogleMapsAPIKey,
			BaseURL:  cfg.Providers.DirectionsBaseURL,
			Registry: deps.Registry,
			Logger:   log,
		}))
	}
	if cfg.Providers.OpenRouteServiceAPIKey != "" {
		directions = append(directions, openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.Providers.OpenRouteServiceAPIKey,
			Registry: deps.Registry,
			Logger:   log,
		}))
	}

	var builderProvider routing.Provider
	if len(directions) > 0 {
		builderProvider = routing.NewService(routing.ServiceConfig{
			Provider: routing.NewFailover(log, directions...),
			Logger:   log,
			Cache: cache.NewMemory[*routing.DirectionsResponse](cache.MemoryConfig{
				Capacity: cfg.Routing.DirectionsCacheSize,
			}),
			CacheTTL: cfg.Routing.DirectionsCacheTTL,
			Metrics:  deps.Metrics,
		})
		log.Info().Int("providers", len(directions)).Msg("directions service initialized")
	} else {
		log.Warn().Msg("no directions provider configured - routes will be synthetic")
	}

	builder := routing.NewBuilder(routing.BuilderConfig{
		Provider:           builderProvider,
		Logger:             log,
		DuplicateTolerance: cfg.Routing.DuplicateTolerance,
		MaxCandidates:      cfg.Routing.MaxCandidates,
	})

	factors := safety.Dependencies{Reports: deps.Reports}

	if cfg.Providers.GoogleMapsAPIKey != "" {
		factors.Places = places.NewService(places.ServiceConfig{
			Provider: googleplaces.NewClient(googleplaces.ClientConfig{
				APIKey:   cfg.Providers.GoogleMapsAPIKey,
				BaseURL:  cfg.Providers.PlacesBaseURL,
				Registry: deps.Registry,
				Logger:   log,
			}),
			Logger: log,
			Cache: cache.NewMemory[[]places.Place](cache.MemoryConfig{
				Capacity:  cfg.Safety.PlacesCacheSize,
				Retention: cfg.Safety.PlacesCacheTTL,
			}),
			CacheTTL: cfg.Safety.PlacesCacheTTL,
			Metrics:  deps.Metrics,
		})
	} else {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set - density and safe-spot factors are defaulted")
	}

	if cfg.Providers.LightingInspectorURL != "" {
		factors.Inspector = imagery.NewService(imagery.ServiceConfig{
			Inspector: imagery.NewClient(imagery.ClientConfig{
				BaseURL:  cfg.Providers.LightingInspectorURL,
				APIKey:   cfg.Providers.LightingInspectorAPIKey,
				Registry: deps.Registry,
				Logger:   log,
			}),
			Logger: log,
			Cache: cache.NewMemory[imagery.Inspection](cache.MemoryConfig{
				Capacity:  cfg.Safety.ImageryCacheSize,
				Retention: cfg.Safety.ImageryCacheTTL,
			}),
			CacheTTL: cfg.Safety.ImageryCacheTTL,
			Metrics:  deps.Metrics,
		})
	} else {
		log.Warn().Msg("LIGHTING_INSPECTOR_URL not set - lighting factor is defaulted")
	}

	loc, err := cfg.Safety.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid safety time zone")
	}

	scorer := safety.NewScorer(safety.Config{
		Logger:               log.With().Str("component", "safety").Logger(),
		Location:             loc,
		SampleCount:          cfg.Safety.SampleCount,
		DensityRadiusMeters:  cfg.Safety.DensityRadiusMeters,
		SafeSpotRadiusMeters: cfg.Safety.SafeSpotRadiusMeters,
		ReportWindow:         cfg.Safety.ReportWindow,
		ReportRadiusMeters:   cfg.Safety.ReportRadiusMeters,
		AnalyzerTimeout:      cfg.Safety.AnalyzerTimeout,
	}, factors)

	return planner.New(planner.Config{
		Builder:                  builder,
		Scorer:                   scorer,
		Logger:                   log,
		RouteTTL:                 cfg.Routing.RouteTTL,
		DisableSyntheticFallback: cfg.Routing.DisableSyntheticRoute,
	})
}
