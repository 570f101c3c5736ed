package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saferoute/saferoute/internal/clock"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reports []Report
	clock   clock.Clock
}

// NewInMemoryRepository creates a new in-memory report repository.
func NewInMemoryRepository(opts ...Option) *InMemoryRepository {
	return &InMemoryRepository{clock: applyOptions(opts).clock}
}

// Create stores a new report.
func (r *InMemoryRepository) Create(_ context.Context, report *Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	fillDefaults(report, r.clock)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, *report)
	return nil
}

// ReportsCreatedSince returns reports created at or after since, newest first.
func (r *InMemoryRepository) ReportsCreatedSince(_ context.Context, since time.Time) ([]Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Report, 0)
	for _, rep := range r.reports {
		if !rep.CreatedAt.Before(since) {
			out = append(out, rep)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func fillDefaults(report *Report, clk clock.Clock) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Severity == "" {
		report.Severity = SeverityFor(report.Category)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = clk.Now().UTC()
	}
}
