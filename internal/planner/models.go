package planner

import (
	"time"

	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// ScoredRoute is a candidate together with its safety assessment. It is never
// modified after creation; rescoring yields a new value.
type ScoredRoute struct {
	ID        string
	Slot      int
	Candidate *routing.RouteCandidate
	Safety    safety.Result
	ScoredAt  time.Time
}

// Overall returns the aggregate safety score.
func (r *ScoredRoute) Overall() float64 { return r.Safety.Overall }

// Label returns the qualitative safety label.
func (r *ScoredRoute) Label() safety.Label { return r.Safety.Label }

// Factors returns the per-factor scores in reporting order.
func (r *ScoredRoute) Factors() []safety.FactorScore {
	out := make([]safety.FactorScore, len(r.Safety.Factors))
	copy(out, r.Safety.Factors)
	return out
}

// Synthetic reports whether the route is a fabricated straight line.
func (r *ScoredRoute) Synthetic() bool { return r.Candidate.Synthetic() }

// Degraded reports whether the route or any of its scores came from a fallback.
func (r *ScoredRoute) Degraded() bool {
	return r.Candidate.Synthetic() || r.Safety.Defaulted()
}
