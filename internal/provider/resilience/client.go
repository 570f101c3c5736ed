package resilience

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling upstream while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
)

// ClientConfig configures a resilient client for one upstream provider.
type ClientConfig struct {
	// Name keys the breaker and the registry entry, e.g. "google-directions".
	Name string

	// Timeout bounds a single attempt. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first. Default: 3.
	MaxRetries uint64

	// DisableRetries makes every call a single attempt.
	DisableRetries bool

	// InitialInterval and MaxInterval shape the exponential backoff between
	// attempts. Defaults: 100ms and 5s. MaxInterval also caps how long a
	// provider's Retry-After is honored.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig when set.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives the client on construction and every call outcome.
	Registry *Registry
}

// DefaultClientConfig returns the settings used for the map, places and
// imagery providers.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
		CircuitBreaker:  &cbConfig,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.DisableRetries {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = defaultInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = defaultMaxInterval
	}
	return c
}

// Client executes provider calls through a circuit breaker, retrying network
// errors, 5xx answers and 429s with exponential backoff.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cfg.Registry != nil {
		observe := cbConfig.OnStateChange
		registry, name := cfg.Registry, cfg.Name
		cbConfig.OnStateChange = func(breaker string, from, to gobreaker.State) {
			if observe != nil {
				observe(breaker, from, to)
			}
			registry.recordTransition(name, from, to)
		}
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Do sends req, bounded by its context. When every attempt ends in a 5xx or
// 429 the last such response is returned with a nil error so callers can map
// the upstream status themselves.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext is Do with an explicit context for all attempts.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.do(ctx, req)
	c.record(resp, err)
	return resp, err
}

func (c *Client) record(resp *http.Response, err error) {
	if c.config.Registry == nil {
		return
	}
	switch {
	case err != nil:
		c.config.Registry.RecordFailure(c.config.Name, err)
	case resp.StatusCode >= 500:
		c.config.Registry.RecordFailure(c.config.Name, &ServerError{StatusCode: resp.StatusCode})
	default:
		c.config.Registry.RecordSuccess(c.config.Name)
	}
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	hinted := &retryAfterBackOff{BackOff: bo, max: c.config.MaxInterval}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, c.config.MaxRetries), ctx)

	var last *http.Response
	keep := func(r *http.Response) {
		if last != nil && last != r {
			_ = last.Body.Close()
		}
		last = r
	}

	attempt := func() error {
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.send(ctx, req)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case err != nil:
			if resp != nil {
				keep(resp)
			}
			return err
		}

		keep(resp)
		// A 429 is the provider's quota, not its health; the breaker
		// counted it as a success and the retry waits as long as asked.
		if resp.StatusCode == http.StatusTooManyRequests {
			hinted.hint = retryAfter(resp.Header.Get("Retry-After"))
			return errRateLimited
		}
		return nil
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		if last != nil && !errors.Is(err, ErrCircuitOpen) {
			return last, nil
		}
		if last != nil {
			_ = last.Body.Close()
		}
		return nil, err
	}
	return last, nil
}

// send clones req for one attempt; bodies are replayed through GetBody.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		clone.Body = body
	}
	return c.httpClient.Do(clone)
}

var errRateLimited = errors.New("rate limited by provider")

// retryAfterBackOff waits at least as long as the provider's last Retry-After
// hint, capped at max.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
	max  time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > next {
		next = b.hint
	}
	b.hint = 0
	if next > b.max {
		next = b.max
	}
	return next
}

// retryAfter parses the delay-seconds form of Retry-After. HTTP dates are
// not used by any provider this client talks to.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ServerError is a 5xx answer from upstream.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// Name returns the client name used for the circuit breaker and registry.
func (c *Client) Name() string {
	return c.config.Name
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the counts for the breaker's current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
