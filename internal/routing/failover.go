package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Failover is a Provider that asks each provider in turn until one answers.
// Outcomes that would be the same from any provider, such as an unroutable
// point pair, are returned without trying the rest.
type Failover struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewFailover creates a failover chain. Nil providers are skipped.
func NewFailover(logger zerolog.Logger, providers ...Provider) *Failover {
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Failover{providers: kept, logger: logger}
}

// Name joins the chained provider names.
func (f *Failover) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// GetDirections returns the first successful response.
func (f *Failover) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if len(f.providers) == 0 {
		return nil, &Error{Code: "NO_PROVIDER", Message: "no directions provider configured", Err: ErrProviderUnavailable}
	}

	var errs []error
	for i, p := range f.providers {
		resp, err := p.GetDirections(ctx, req)
		if err == nil {
			return resp, nil
		}
		if final(err) || ctx.Err() != nil {
			return nil, err
		}
		errs = append(errs, err)

		if i < len(f.providers)-1 {
			f.logger.Warn().Err(err).
				Str("provider", p.Name()).
				Str("next_provider", f.providers[i+1].Name()).
				Msg("directions provider failed, trying next")
		}
	}
	return nil, errors.Join(errs...)
}

// final reports whether another provider would give the same answer.
func final(err error) bool {
	return errors.Is(err, ErrNoRouteFound) || errors.Is(err, ErrInvalidCoordinates)
}
