// Package resilience wraps outbound provider calls with circuit breakers,
// retries and per-provider health tracking.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Trip thresholds shared by every provider unless overridden.
const (
	defaultMinRequests         = 5
	defaultFailureRatio        = 0.5
	defaultConsecutiveFailures = 3
	defaultOpenTimeout         = 60 * time.Second
)

// CircuitBreakerConfig configures a provider circuit breaker.
type CircuitBreakerConfig struct {
	// Name labels the breaker in health output and logs.
	Name string

	// MaxRequests is how many probes pass while half-open (default 1).
	MaxRequests uint32

	// Interval clears the counts while closed. Zero keeps them until a trip.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing (default 60s).
	Timeout time.Duration

	// ReadyToTrip overrides the threshold policy below when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// MinRequests, FailureRatio and ConsecutiveFailures drive the default
	// policy: trip on ConsecutiveFailures in a row, or once MinRequests have
	// been seen with at least FailureRatio of them failing.
	MinRequests         uint32
	FailureRatio        float64
	ConsecutiveFailures uint32

	// OnStateChange observes transitions. The client registry chains its own
	// hook after this one.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the thresholds used for map providers.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Timeout:             defaultOpenTimeout,
		MinRequests:         defaultMinRequests,
		FailureRatio:        defaultFailureRatio,
		ConsecutiveFailures: defaultConsecutiveFailures,
		ReadyToTrip:         DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips on three failures in a row, or on a failure ratio
// of one half once five requests have been counted.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return tripPolicy(defaultMinRequests, defaultFailureRatio, defaultConsecutiveFailures)(counts)
}

func tripPolicy(minRequests uint32, ratio float64, consecutive uint32) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if consecutive > 0 && c.ConsecutiveFailures >= consecutive {
			return true
		}
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

// NewCircuitBreaker builds a gobreaker from cfg, filling zero fields with defaults.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenTimeout
	}

	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		minRequests, ratio := cfg.MinRequests, cfg.FailureRatio
		if minRequests == 0 {
			minRequests = defaultMinRequests
		}
		if ratio <= 0 || ratio > 1 {
			ratio = defaultFailureRatio
		}
		readyToTrip = tripPolicy(minRequests, ratio, cfg.ConsecutiveFailures)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
