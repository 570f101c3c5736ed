package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// ProviderName identifies the HTTP inspector.
const ProviderName = "lighting-inspector"

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the HTTP inspector client.
type ClientConfig struct {
	// BaseURL is the inspector service base URL (required).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 8s).
	// Image analysis is slower than a plain lookup.
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client calls a lighting inspection service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new inspector client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type inspectRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type inspectResponse struct {
	Brightness           float64 `json:"brightness"`
	DetectedLightSources int     `json:"detected_light_sources"`
}

// Inspect asks the service to analyse imagery around point.
func (c *Client) Inspect(ctx context.Context, point polyline.Coordinate) (Inspection, error) {
	if c.baseURL == "" {
		return Inspection{}, ErrInspectorUnavailable
	}
	if !point.Valid() {
		return Inspection{}, fmt.Errorf("inspect: invalid point %v", point)
	}

	body, err := json.Marshal(inspectRequest{Lat: point.Lat, Lon: point.Lon})
	if err != nil {
		return Inspection{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/inspect", bytes.NewReader(body))
	if err != nil {
		return Inspection{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Inspection{}, fmt.Errorf("%w: %v", ErrInspectorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Inspection{}, fmt.Errorf("%w: reading response: %v", ErrInspectorUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Inspection{}, fmt.Errorf("%w: status %d", ErrInspectorUnavailable, resp.StatusCode)
	}

	var out inspectResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Inspection{}, fmt.Errorf("%w: decoding response: %v", ErrInspectorUnavailable, err)
	}

	return Inspection{
		Brightness:           out.Brightness,
		DetectedLightSources: out.DetectedLightSources,
	}.Normalize(), nil
}
