package places

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/pkg/polyline"
)

type mockProvider struct {
	places    []Place
	err       error
	callCount atomic.Int32
}

func (m *mockProvider) Nearby(_ context.Context, _ polyline.Coordinate, _ float64, _ Category) ([]Place, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.places, nil
}

func (m *mockProvider) Name() string { return "mock-places" }

func newTestService(p Provider) (*Service, *clock.Fixed) {
	c := clock.NewFixed(time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC))
	return NewService(ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		Cache:    cache.NewMemory[[]Place](cache.MemoryConfig{Capacity: 32, Clock: c}),
		CacheTTL: time.Hour,
		Clock:    c,
	}), c
}

var mgRoad = polyline.Coordinate{Lat: 12.9716, Lon: 77.5946}

func TestService_Nearby_CachesByBucket(t *testing.T) {
	open := true
	provider := &mockProvider{places: []Place{{Name: "Police Station", Category: CategoryPolice, OpenNow: &open}}}
	service, _ := newTestService(provider)

	got, err := service.Nearby(context.Background(), mgRoad, 1000, CategoryPolice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsOpenNow())

	_, err = service.Nearby(context.Background(), polyline.Coordinate{Lat: 12.97165, Lon: 77.59462}, 1000, CategoryPolice)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.callCount.Load())

	_, err = service.Nearby(context.Background(), mgRoad, 1000, CategoryHospital)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.callCount.Load(), "category is part of the key")
}

func TestService_Nearby_Expiry(t *testing.T) {
	provider := &mockProvider{}
	service, c := newTestService(provider)

	_, _ = service.Nearby(context.Background(), mgRoad, 500, CategoryAny)
	c.Advance(2 * time.Hour)
	_, _ = service.Nearby(context.Background(), mgRoad, 500, CategoryAny)

	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_Nearby_ErrorsAreNotCached(t *testing.T) {
	provider := &mockProvider{err: ErrProviderUnavailable}
	service, _ := newTestService(provider)

	_, err := service.Nearby(context.Background(), mgRoad, 500, CategoryAny)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))

	provider.err = nil
	_, err = service.Nearby(context.Background(), mgRoad, 500, CategoryAny)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_Nearby_InvalidPoint(t *testing.T) {
	provider := &mockProvider{}
	service, _ := newTestService(provider)

	_, err := service.Nearby(context.Background(), polyline.Coordinate{Lat: 100}, 500, CategoryAny)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Zero(t, provider.callCount.Load())
}

func TestPlace_IsOpenNow(t *testing.T) {
	closed := false
	assert.False(t, Place{}.IsOpenNow())
	assert.False(t, Place{OpenNow: &closed}.IsOpenNow())
}
