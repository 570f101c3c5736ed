// Package googleplaces provides a client for the Google Places nearby-search API.
package googleplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/pkg/polyline"
)

const (
	// ProviderName identifies this places provider.
	ProviderName = "google-places"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 5 * time.Second

	// maxRadiusMeters is the largest radius the API accepts.
	maxRadiusMeters = 50000
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Places client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 5s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Places API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Places client.
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

// Nearby returns places within radiusMeters of point.
func (c *Client) Nearby(ctx context.Context, point polyline.Coordinate, radiusMeters float64, category places.Category) ([]places.Place, error) {
	if !point.Valid() {
		return nil, places.ErrInvalidCoordinates
	}

	radius := int(radiusMeters)
	switch {
	case radius <= 0:
		radius = 500
	case radius > maxRadiusMeters:
		radius = maxRadiusMeters
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%.6f,%.6f", point.Lat, point.Lon))
	q.Set("radius", fmt.Sprintf("%d", radius))
	if category != places.CategoryAny {
		q.Set("type", string(category))
	}
	q.Set("key", c.apiKey)

	endpoint := c.baseURL + "/maps/api/place/nearbysearch/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", places.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", places.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", places.ErrProviderUnavailable, resp.StatusCode)
	}

	var apiResp nearbyResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", places.ErrProviderUnavailable, err)
	}

	switch apiResp.Status {
	case statusOK:
	case statusZeroResults:
		return []places.Place{}, nil
	default:
		c.logger.Warn().
			Str("status", apiResp.Status).
			Str("error_message", apiResp.ErrorMessage).
			Msg("places lookup rejected")
		return nil, fmt.Errorf("%w: %s", places.ErrProviderUnavailable, apiResp.Status)
	}

	result := make([]places.Place, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		loc := polyline.Coordinate{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng}
		if !loc.Valid() {
			continue
		}

		p := places.Place{
			ID:       r.PlaceID,
			Name:     r.Name,
			Location: loc,
			Category: category,
		}
		if r.OpeningHours != nil && r.OpeningHours.OpenNow != nil {
			open := *r.OpeningHours.OpenNow
			p.OpenNow = &open
		}
		result = append(result, p)
	}

	c.logger.Debug().
		Str("category", string(category)).
		Int("radius", radius).
		Int("result_count", len(result)).
		Msg("received nearby places")

	return result, nil
}

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// nearbyResponse represents the nearby-search response body.
type nearbyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	PlaceID      string        `json:"place_id"`
	Name         string        `json:"name"`
	Vicinity     string        `json:"vicinity,omitempty"`
	Types        []string      `json:"types,omitempty"`
	Geometry     placeGeometry `json:"geometry"`
	OpeningHours *openingHours `json:"opening_hours,omitempty"`
}

type placeGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type openingHours struct {
	OpenNow *bool `json:"open_now,omitempty"`
}
