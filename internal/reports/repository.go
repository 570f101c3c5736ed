package reports

import (
	"context"
	"time"

	"github.com/saferoute/saferoute/internal/clock"
)

// Store is the read side used by the community analyzer.
type Store interface {
	// ReportsCreatedSince returns reports created at or after since, newest first.
	ReportsCreatedSince(ctx context.Context, since time.Time) ([]Report, error)
}

// Repository defines the interface for report persistence.
type Repository interface {
	Store

	// Create stores a new report. ID, Severity and CreatedAt are filled in when empty.
	Create(ctx context.Context, report *Report) error
}

// Option configures a repository.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock that stamps CreatedAt (default: wall clock).
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.clock = clock.OrReal(o.clock)
	return o
}
