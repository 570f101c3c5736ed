package routing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// mockProvider is a scripted directions provider for testing. Responses are keyed by
// the avoid-highways flag so the builder's two passes can be told apart.
type mockProvider struct {
	name string

	mu        sync.Mutex
	responses map[bool]*DirectionsResponse
	errs      map[bool]error
	requests  []DirectionsRequest
	callCount atomic.Int32
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		name:      "test-provider",
		responses: make(map[bool]*DirectionsResponse),
		errs:      make(map[bool]error),
	}
}

func (m *mockProvider) GetDirections(_ context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	m.callCount.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if err := m.errs[req.AvoidHighways]; err != nil {
		return nil, err
	}
	if resp, ok := m.responses[req.AvoidHighways]; ok {
		return resp, nil
	}
	return &DirectionsResponse{Provider: m.name}, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) respond(avoidHighways bool, routes ...RawRoute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[avoidHighways] = &DirectionsResponse{Routes: routes, Provider: m.name}
}

func (m *mockProvider) fail(avoidHighways bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[avoidHighways] = err
}

// rawRoute builds a straight provider route between two points.
func rawRoute(from, to Coordinate, distance, duration float64, summary string) RawRoute {
	pts := polyline.Interpolate(from, to, 100)
	return RawRoute{
		Polyline:        polyline.Encode(pts),
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Summary:         summary,
		Steps: []RawStep{
			{
				Instruction:     "Head north",
				Maneuver:        "straight",
				Polyline:        polyline.Encode(pts),
				Start:           pts[0],
				End:             pts[len(pts)-1],
				DistanceMeters:  distance,
				DurationSeconds: duration,
			},
		},
	}
}

var (
	testOrigin      = Coordinate{Lat: 12.9716, Lon: 77.5946}
	testDestination = Coordinate{Lat: 12.9800, Lon: 77.6000}
)
