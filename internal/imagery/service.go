package imagery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// ServiceConfig holds configuration for the cached inspector.
type ServiceConfig struct {
	Inspector Inspector
	Logger    zerolog.Logger

	// Cache stores inspections by location bucket (default: cache.Nop).
	Cache cache.Store[Inspection]

	// CacheTTL defaults to 7 days; street lighting rarely changes.
	CacheTTL time.Duration

	// CacheGridSize defaults to 0.0005 degrees (~55m).
	CacheGridSize float64

	Clock   clock.Clock
	Metrics resilience.Metrics
}

// Service is an Inspector that caches another Inspector's results.
type Service struct {
	inspector     Inspector
	logger        zerolog.Logger
	cache         cache.Store[Inspection]
	cacheTTL      time.Duration
	cacheGridSize float64
	clock         clock.Clock
	metrics       resilience.Metrics
}

// NewService creates a cached inspector.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Cache
	if store == nil {
		store = cache.Nop[Inspection]{}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.0005
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = resilience.NopMetrics{}
	}

	return &Service{
		inspector:     cfg.Inspector,
		logger:        cfg.Logger,
		cache:         store,
		cacheTTL:      cacheTTL,
		cacheGridSize: cacheGridSize,
		clock:         clock.OrReal(cfg.Clock),
		metrics:       metrics,
	}
}

// Inspect returns the cached inspection for point's bucket or asks the inspector.
func (s *Service) Inspect(ctx context.Context, point polyline.Coordinate) (Inspection, error) {
	if s.inspector == nil {
		return Inspection{}, ErrInspectorUnavailable
	}

	key := cache.GridKey(point.Lat, point.Lon, s.cacheGridSize)
	if e, ok := s.cache.Lookup(key); ok && e.Fresh(s.clock.Now()) {
		s.metrics.RecordCacheHit(ProviderName, "inspect")
		return e.Value, nil
	}
	s.metrics.RecordCacheMiss(ProviderName, "inspect")

	start := time.Now()
	result, err := s.inspector.Inspect(ctx, point)
	s.metrics.RecordRequest(ProviderName, "inspect", time.Since(start), err)
	if err != nil {
		return Inspection{}, err
	}

	s.cache.Put(key, result, s.cacheTTL)
	return result, nil
}
