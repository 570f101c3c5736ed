package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailover_UsesNextProviderOnOutage(t *testing.T) {
	primary := newMockProvider()
	primary.name = "primary"
	primary.fail(false, &Error{Code: "SERVER_503", Message: "down", Err: ErrProviderUnavailable})

	secondary := newMockProvider()
	secondary.name = "secondary"
	secondary.respond(false, rawRoute(testOrigin, testDestination, 1200, 900, "Secondary"))

	f := NewFailover(zerolog.Nop(), primary, nil, secondary)
	assert.Equal(t, "primary+secondary", f.Name())

	resp, err := f.GetDirections(context.Background(), DirectionsRequest{Origin: testOrigin, Destination: testDestination})
	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, "Secondary", resp.Routes[0].Summary)
	assert.Equal(t, int32(1), primary.callCount.Load())
	assert.Equal(t, int32(1), secondary.callCount.Load())
}

func TestFailover_NoRouteIsFinal(t *testing.T) {
	primary := newMockProvider()
	primary.fail(false, &Error{Code: "ZERO_RESULTS", Message: "none", Err: ErrNoRouteFound})
	secondary := newMockProvider()

	_, err := NewFailover(zerolog.Nop(), primary, secondary).
		GetDirections(context.Background(), DirectionsRequest{Origin: testOrigin, Destination: testDestination})

	assert.ErrorIs(t, err, ErrNoRouteFound)
	assert.Equal(t, int32(0), secondary.callCount.Load())
}

func TestFailover_AllProvidersFail(t *testing.T) {
	primary := newMockProvider()
	primary.fail(false, &Error{Code: "RATE_LIMIT", Message: "slow down", Err: ErrRateLimitExceeded})
	secondary := newMockProvider()
	secondary.fail(false, errors.New("boom"))

	_, err := NewFailover(zerolog.Nop(), primary, secondary).
		GetDirections(context.Background(), DirectionsRequest{Origin: testOrigin, Destination: testDestination})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Contains(t, err.Error(), "boom")
}

func TestFailover_Empty(t *testing.T) {
	_, err := NewFailover(zerolog.Nop()).GetDirections(context.Background(), DirectionsRequest{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
