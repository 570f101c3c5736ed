package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// DefaultDirectionsGridSize keys cached directions on endpoints rounded to
// 5 decimal places (about 1 m), the precision of an encoded polyline.
const DefaultDirectionsGridSize = 0.00001

// ServiceConfig holds configuration for the cached directions service.
type ServiceConfig struct {
	// Provider is the directions data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Cache stores directions responses (default: cache.Nop).
	Cache cache.Store[*DirectionsResponse]

	// CacheTTL is how long a cached response is fresh (default: 30 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default:
	// DefaultDirectionsGridSize). A cached route starts at the first caller's
	// origin, so cells must stay well under the deviation radius or a shared
	// route can begin off route for the next caller.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 6 hours).
	StaleIfErrorTTL time.Duration

	// Clock is the time source (default: wall clock).
	Clock clock.Clock

	// Metrics records provider calls and cache hits (optional).
	Metrics resilience.Metrics
}

// Service is a Provider that caches another Provider's responses.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cache           cache.Store[*DirectionsResponse]
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	clock           clock.Clock
	metrics         resilience.Metrics

	inflight singleflight.Group
}

// NewService creates a new cached directions service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Cache
	if store == nil {
		store = cache.Nop[*DirectionsResponse]{}
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize <= 0 {
		cacheGridSize = DefaultDirectionsGridSize
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 6 * time.Hour
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = resilience.NopMetrics{}
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cache:           store,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		clock:           clock.OrReal(cfg.Clock),
		metrics:         metrics,
	}
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// GetDirections returns route directions between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if !req.Origin.Valid() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if !req.Destination.Valid() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	key := s.cacheKey(req)

	if e, ok := s.cache.Lookup(key); ok && e.Fresh(s.clock.Now()) {
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		s.logger.Debug().
			Str("cache_key", key).
			Msg("cache hit for directions")
		return e.Value, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "directions")

	// Concurrent misses for the same key share one provider call.
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.fetchDirections(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DirectionsResponse), nil
}

// fetchDirections fetches directions from the provider and updates the cache.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	// Double-check: another caller may have just populated the entry.
	if e, ok := s.cache.Lookup(key); ok && e.Fresh(s.clock.Now()) {
		return e.Value, nil
	}

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("profile", string(req.Profile)).
		Bool("avoid_highways", req.AvoidHighways).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	start := time.Now()
	resp, err := s.provider.GetDirections(ctx, req)
	s.metrics.RecordRequest(s.provider.Name(), "directions", time.Since(start), err)

	if err != nil {
		// Stale-if-error
		if e, ok := s.cache.Lookup(key); ok && s.clock.Now().Before(e.StoredAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().Err(err).
				Time("fetched_at", e.StoredAt).
				Str("cache_key", key).
				Msg("serving stale directions data due to provider error")
			return e.Value, nil
		}
		return nil, err
	}

	s.cache.Put(key, resp, s.cacheTTL)

	s.logger.Debug().
		Str("cache_key", key).
		Int("route_count", len(resp.Routes)).
		Msg("cached directions response")

	return resp, nil
}

// cacheKey generates a cache key for a directions request.
// Format: {profile}:{alternatives}:{avoidHighways}:{gridOrigin}:{gridDestination}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	return fmt.Sprintf("%s:%t:%t:%s:%s",
		req.Profile,
		req.Alternatives,
		req.AvoidHighways,
		cache.GridKey(req.Origin.Lat, req.Origin.Lon, s.cacheGridSize),
		cache.GridKey(req.Destination.Lat, req.Destination.Lon, s.cacheGridSize),
	)
}
