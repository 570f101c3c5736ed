// Package googledirections provides a client for the Google Directions API.
package googledirections

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "google-directions"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Directions client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the Google Maps API).
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

// Client is a Google Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Directions client.
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
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves route directions between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := routing.ValidateEndpoints(ProviderName, req); err != nil {
		return nil, err
	}

	profile := req.Profile
	if !profile.Valid() {
		profile = routing.ProfileWalk
	}

	q := url.Values{}
	q.Set("origin", formatLatLng(req.Origin))
	q.Set("destination", formatLatLng(req.Destination))
	q.Set("mode", string(profile))
	q.Set("alternatives", fmt.Sprintf("%t", req.Alternatives))
	if req.AvoidHighways {
		q.Set("avoid", "highways")
	}
	q.Set("key", c.apiKey)

	endpoint := c.baseURL + "/maps/api/directions/json?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("mode", string(profile)).
		Bool("alternatives", req.Alternatives).
		Bool("avoid_highways", req.AvoidHighways).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, routing.Unreachable(ProviderName, "REQUEST_FAILED")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, routing.Unreachable(ProviderName, "READ_FAILED")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, routing.StatusError(ProviderName, resp.StatusCode, "")
	}

	var apiResp directionsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, routing.Unreachable(ProviderName, "DECODE_FAILED")
	}

	if apiResp.Status != statusOK {
		return nil, c.handleStatus(apiResp.Status, apiResp.ErrorMessage)
	}

	result := toDirectionsResponse(&apiResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Google")

	return result, nil
}

// handleStatus maps Directions API status values, which arrive with HTTP 200,
// to domain errors.
func (c *Client) handleStatus(status, message string) error {
	if message == "" {
		message = strings.ToLower(strings.ReplaceAll(status, "_", " "))
	}

	var kind error
	switch status {
	case statusZeroResults, statusNotFound:
		message, kind = "no route found between the given points", routing.ErrNoRouteFound
	case statusOverQueryLimit, statusOverDailyLimit:
		kind = routing.ErrRateLimitExceeded
	case statusInvalidRequest, statusMaxWaypointsExceeded:
		kind = routing.ErrInvalidRequest
	case statusRequestDenied:
		message, kind = "API access denied - check API key configuration", routing.ErrProviderUnavailable
	default:
		kind = routing.ErrProviderUnavailable
	}
	return routing.NewError(ProviderName, status, message, kind)
}

// toDirectionsResponse converts the API response to the domain model.
// Multi-leg routes are flattened into a single step list.
func toDirectionsResponse(resp *directionsResponse) *routing.DirectionsResponse {
	routes := make([]routing.RawRoute, 0, len(resp.Routes))

	for i := range resp.Routes {
		apiRoute := &resp.Routes[i]
		route := routing.RawRoute{
			Polyline: apiRoute.OverviewPolyline.Points,
			Summary:  apiRoute.Summary,
		}

		for j := range apiRoute.Legs {
			leg := &apiRoute.Legs[j]
			route.DistanceMeters += leg.Distance.Value
			route.DurationSeconds += leg.Duration.Value

			for k := range leg.Steps {
				step := &leg.Steps[k]
				route.Steps = append(route.Steps, routing.RawStep{
					Instruction:     stripHTML(step.HTMLInstructions),
					Maneuver:        step.Maneuver,
					Polyline:        step.Polyline.Points,
					Start:           routing.Coordinate{Lat: step.StartLocation.Lat, Lon: step.StartLocation.Lng},
					End:             routing.Coordinate{Lat: step.EndLocation.Lat, Lon: step.EndLocation.Lng},
					DistanceMeters:  step.Distance.Value,
					DurationSeconds: step.Duration.Value,
				})
			}
		}

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup from an instruction, keeping block boundaries as spaces.
func stripHTML(s string) string {
	s = strings.ReplaceAll(s, "<div", " <div")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func formatLatLng(c routing.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
