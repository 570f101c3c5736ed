package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/saferoute/saferoute/internal/clock"
)

// ProviderHealth is a point-in-time view of one upstream provider.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// Trips counts closed or half-open to open transitions since registration.
	Trips int
	// StateChangedAt is when the breaker last moved; nil if it never has.
	StateChangedAt *time.Time
}

// IsHealthy reports a closed circuit.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports a half-open circuit.
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports an open circuit.
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger logs circuit transitions.
func WithLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// WithClock sets the time source for recorded outcomes.
func WithClock(c clock.Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock.OrReal(c) }
}

// Registry tracks provider clients and their recent outcomes for the status
// endpoint. Clients are never called while mu is held: gobreaker invokes the
// transition hook under its own lock.
type Registry struct {
	log   zerolog.Logger
	clock clock.Clock

	mu        sync.RWMutex
	providers map[string]*registeredProvider
}

type registeredProvider struct {
	client         *Client
	lastSuccessAt  *time.Time
	lastFailureAt  *time.Time
	lastError      string
	trips          int
	stateChangedAt *time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:       zerolog.Nop(),
		clock:     clock.Real{},
		providers: make(map[string]*registeredProvider),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a client under name, replacing any previous one.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &registeredProvider{client: client}
}

// Unregister removes a provider.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// RecordSuccess notes a successful call.
func (r *Registry) RecordSuccess(name string) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		p.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call and keeps its message.
func (r *Registry) RecordFailure(name string, err error) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// recordTransition is the breaker's OnStateChange hook.
func (r *Registry) recordTransition(name string, from, to gobreaker.State) {
	now := r.clock.Now()

	r.mu.Lock()
	if p, ok := r.providers[name]; ok {
		p.stateChangedAt = &now
		if to == gobreaker.StateOpen {
			p.trips++
		}
	}
	r.mu.Unlock()

	event := r.log.Info()
	if to == gobreaker.StateOpen {
		event = r.log.Warn()
	}
	event.
		Str("provider", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("provider circuit changed state")
}

// GetHealth returns the health of one provider, or nil if unknown.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	p, ok := r.providers[name]
	var snap registeredProvider
	if ok {
		snap = *p
	}
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return snap.health(name)
}

// GetAllHealth returns every provider's health ordered by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	snaps := make(map[string]registeredProvider, len(r.providers))
	for name, p := range r.providers {
		snaps[name] = *p
	}
	r.mu.RUnlock()

	out := make([]*ProviderHealth, 0, len(snaps))
	for name, snap := range snaps {
		out = append(out, snap.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p registeredProvider) health(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:           name,
		CircuitState:   p.client.CircuitBreakerState(),
		Counts:         p.client.CircuitBreakerCounts(),
		LastSuccessAt:  p.lastSuccessAt,
		LastFailureAt:  p.lastFailureAt,
		LastError:      p.lastError,
		Trips:          p.trips,
		StateChangedAt: p.stateChangedAt,
	}
}

// Overall is "unhealthy" if any circuit is open, "degraded" if any is
// half-open and "healthy" otherwise.
func (r *Registry) Overall() string {
	status := "healthy"
	for _, h := range r.GetAllHealth() {
		switch {
		case h.IsUnhealthy():
			return "unhealthy"
		case h.IsDegraded():
			status = "degraded"
		}
	}
	return status
}

// Names lists registered providers in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
