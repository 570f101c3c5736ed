package places

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// ServiceConfig holds configuration for the cached places service.
type ServiceConfig struct {
	// Provider is the places data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Cache stores lookup results (default: cache.Nop).
	Cache cache.Store[[]Place]

	// CacheTTL is how long a cached lookup is fresh (default: 24 hours).
	CacheTTL time.Duration

	// CacheGridSize is the location bucket size in degrees (default: 0.001 ~ 110m).
	CacheGridSize float64

	// Clock is the time source (default: wall clock).
	Clock clock.Clock

	// Metrics records provider calls and cache hits (optional).
	Metrics resilience.Metrics
}

// Service is a Provider that caches another Provider's results by location bucket.
type Service struct {
	provider      Provider
	logger        zerolog.Logger
	cache         cache.Store[[]Place]
	cacheTTL      time.Duration
	cacheGridSize float64
	clock         clock.Clock
	metrics       resilience.Metrics
}

// NewService creates a new cached places service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Cache
	if store == nil {
		store = cache.Nop[[]Place]{}
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = resilience.NopMetrics{}
	}

	return &Service{
		provider:      cfg.Provider,
		logger:        cfg.Logger,
		cache:         store,
		cacheTTL:      cacheTTL,
		cacheGridSize: cacheGridSize,
		clock:         clock.OrReal(cfg.Clock),
		metrics:       metrics,
	}
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// Nearby returns places near point, from cache when a fresh entry exists.
// Opening hours change during the day, so entries should not be kept fresh for long
// when callers depend on OpenNow.
func (s *Service) Nearby(ctx context.Context, point polyline.Coordinate, radiusMeters float64, category Category) ([]Place, error) {
	if !point.Valid() {
		return nil, ErrInvalidCoordinates
	}

	key := fmt.Sprintf("%s:%.0f:%s", category, radiusMeters, cache.GridKey(point.Lat, point.Lon, s.cacheGridSize))

	if e, ok := s.cache.Lookup(key); ok && e.Fresh(s.clock.Now()) {
		s.metrics.RecordCacheHit(s.provider.Name(), "nearby")
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for nearby places")
		return e.Value, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "nearby")

	start := time.Now()
	result, err := s.provider.Nearby(ctx, point, radiusMeters, category)
	s.metrics.RecordRequest(s.provider.Name(), "nearby", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, result, s.cacheTTL)
	return result, nil
}
