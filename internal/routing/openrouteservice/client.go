// Package openrouteservice provides a client for the OpenRouteService directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// orsProfile maps a routing profile onto an ORS profile path segment.
func orsProfile(p routing.RouteProfile) string {
	switch p {
	case routing.ProfileBike:
		return "cycling-regular"
	case routing.ProfileDrive:
		return "driving-car"
	default:
		return "foot-walking"
	}
}

// GetDirections retrieves route directions between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := routing.ValidateEndpoints(ProviderName, req); err != nil {
		return nil, err
	}

	profile := orsProfile(req.Profile)

	orsReq := orsRequest{
		// ORS uses [lon, lat] order (GeoJSON)
		Coordinates: [][]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Instructions: true,
		Geometry:     true,
		Units:        "m",
		Language:     "en",
	}
	if req.Alternatives {
		orsReq.AlternativeRoutes = &alternativeRoutesOpts{TargetCount: 3, WeightFactor: 1.6}
	}
	// avoid_features is only accepted by the driving profiles.
	if req.AvoidHighways && req.Profile == routing.ProfileDrive {
		orsReq.Options = &routeOptions{AvoidFeatures: []string{"highways"}}
	}

	body, err := json.Marshal(orsReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s", c.baseURL, profile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", profile).
		Bool("alternatives", req.Alternatives).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from ORS")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, routing.Unreachable(ProviderName, "REQUEST_FAILED")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, routing.Unreachable(ProviderName, "READ_FAILED")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}

	var orsResp orsResponse
	if err := json.Unmarshal(respBody, &orsResp); err != nil {
		return nil, routing.Unreachable(ProviderName, "DECODE_FAILED")
	}

	result := c.toDirectionsResponse(&orsResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from ORS")

	return result, nil
}

// handleErrorResponse maps ORS error bodies to domain errors. An unroutable
// pair comes back as a 400 carrying a specific ORS code.
func handleErrorResponse(statusCode int, body []byte) error {
	var orsErr orsErrorResponse
	_ = json.Unmarshal(body, &orsErr) //nolint:errcheck // message is optional

	if orsErr.Error.Code == orsErrorCodeNotFound {
		return routing.NewError(ProviderName, "NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound)
	}
	return routing.StatusError(ProviderName, statusCode, orsErr.Error.Message)
}

// toDirectionsResponse converts an ORS response to the domain model. Step
// geometry is cut from the route geometry using each step's way point range.
func (c *Client) toDirectionsResponse(resp *orsResponse) *routing.DirectionsResponse {
	routes := make([]routing.RawRoute, 0, len(resp.Routes))

	for i := range resp.Routes {
		orsRoute := &resp.Routes[i]
		route := routing.RawRoute{
			Polyline:        orsRoute.Geometry,
			DistanceMeters:  orsRoute.Summary.Distance,
			DurationSeconds: orsRoute.Summary.Duration,
		}

		points, err := polyline.Decode(orsRoute.Geometry)
		if err != nil {
			c.logger.Warn().Err(err).Int("route_index", i).Msg("ORS geometry malformed")
		}

		for j := range orsRoute.Segments {
			segment := &orsRoute.Segments[j]
			for k := range segment.Steps {
				route.Steps = append(route.Steps, toRawStep(&segment.Steps[k], points))
			}
		}
		route.Summary = summarize(orsRoute.Segments)

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

func toRawStep(step *routeStep, points []routing.Coordinate) routing.RawStep {
	raw := routing.RawStep{
		Instruction:     step.Instruction,
		Maneuver:        maneuverTag(step.Type),
		DistanceMeters:  step.Distance,
		DurationSeconds: step.Duration,
	}

	if len(step.WayPoints) == 2 {
		from, to := step.WayPoints[0], step.WayPoints[1]
		if from >= 0 && from <= to && to < len(points) {
			stepPoints := points[from : to+1]
			raw.Polyline = polyline.Encode(stepPoints)
			raw.Start = stepPoints[0]
			raw.End = stepPoints[len(stepPoints)-1]
		}
	}
	return raw
}

// maneuverTag maps ORS instruction types onto the maneuver vocabulary the
// routing package parses.
func maneuverTag(t int) string {
	switch t {
	case 0:
		return "turn-left"
	case 1:
		return "turn-right"
	case 2:
		return "turn-sharp-left"
	case 3:
		return "turn-sharp-right"
	case 4:
		return "turn-slight-left"
	case 5:
		return "turn-slight-right"
	case 7, 8:
		return "roundabout"
	case 9:
		return "uturn"
	case 10:
		return "arrive"
	case 12:
		return "keep-left"
	case 13:
		return "keep-right"
	default:
		return "straight"
	}
}

// summarize names the route after the street covering the longest step.
func summarize(segments []routeSegment) string {
	var name string
	var longest float64
	for i := range segments {
		for _, step := range segments[i].Steps {
			if step.Name == "" || step.Name == "-" {
				continue
			}
			if step.Distance > longest {
				longest = step.Distance
				name = step.Name
			}
		}
	}
	return name
}
