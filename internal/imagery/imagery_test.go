package imagery

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
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

type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

var churchStreet = polyline.Coordinate{Lat: 12.9752, Lon: 77.6045}

func TestClient_Inspect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/inspect", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req inspectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, churchStreet.Lat, req.Lat)

		_, _ = w.Write([]byte(`{"brightness":1.7,"detected_light_sources":6}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "secret",
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	got, err := client.Inspect(context.Background(), churchStreet)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Brightness, "brightness is clamped")
	assert.Equal(t, 6, got.DetectedLightSources)
}

func TestClient_Inspect_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, HTTPClient: &mockHTTPClient{client: server.Client()}})
	_, err := client.Inspect(context.Background(), churchStreet)
	assert.ErrorIs(t, err, ErrInspectorUnavailable)

	unconfigured := NewClient(ClientConfig{})
	_, err = unconfigured.Inspect(context.Background(), churchStreet)
	assert.ErrorIs(t, err, ErrInspectorUnavailable)
}

type countingInspector struct {
	calls atomic.Int32
}

func (c *countingInspector) Inspect(context.Context, polyline.Coordinate) (Inspection, error) {
	c.calls.Add(1)
	return Inspection{Brightness: 0.4, DetectedLightSources: 2}, nil
}

func TestService_Inspect_CachesByBucket(t *testing.T) {
	inspector := &countingInspector{}
	clk := clock.NewFixed(time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC))
	service := NewService(ServiceConfig{
		Inspector: inspector,
		Cache:     cache.NewMemory[Inspection](cache.MemoryConfig{Capacity: 8, Clock: clk}),
		Clock:     clk,
	})

	for i := 0; i < 3; i++ {
		got, err := service.Inspect(context.Background(), churchStreet)
		require.NoError(t, err)
		assert.Equal(t, 2, got.DetectedLightSources)
	}
	assert.Equal(t, int32(1), inspector.calls.Load())

	clk.Advance(8 * 24 * time.Hour)
	_, _ = service.Inspect(context.Background(), churchStreet)
	assert.Equal(t, int32(2), inspector.calls.Load())
}

func TestService_Inspect_NoInspector(t *testing.T) {
	_, err := NewService(ServiceConfig{}).Inspect(context.Background(), churchStreet)
	assert.ErrorIs(t, err, ErrInspectorUnavailable)
}

func TestInspection_Normalize(t *testing.T) {
	assert.Equal(t, Inspection{}, Inspection{Brightness: -0.2, DetectedLightSources: -3}.Normalize())
	assert.Equal(t, 0.0, Inspection{Brightness: math.NaN()}.Normalize().Brightness)
	assert.Equal(t, 0.5, Inspection{Brightness: 0.5}.Normalize().Brightness)
}
