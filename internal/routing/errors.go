package routing

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProviderUnavailable covers outages, open breakers and denied keys.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	ErrNoRouteFound        = errors.New("no route found between the given points")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	// ErrInvalidRequest means the provider rejected the request as malformed.
	ErrInvalidRequest     = errors.New("invalid directions request")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Error is a provider failure classified under one of the sentinels above.
type Error struct {
	Provider string
	Code     string // provider status or a transport code such as SERVER_503
	Message  string
	Err      error
}

// NewError builds an Error; err should be one of the package sentinels.
func NewError(provider, code, message string, err error) *Error {
	return &Error{Provider: provider, Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another provider or a later attempt may succeed.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// ValidateEndpoints rejects out-of-range coordinates before any upstream call.
func ValidateEndpoints(provider string, req DirectionsRequest) error {
	if !req.Origin.Valid() {
		return NewError(provider, "INVALID_ORIGIN", "invalid origin coordinates", ErrInvalidCoordinates)
	}
	if !req.Destination.Valid() {
		return NewError(provider, "INVALID_DESTINATION", "invalid destination coordinates", ErrInvalidCoordinates)
	}
	return nil
}

// Unreachable is the error for a request that never got a usable answer.
func Unreachable(provider, code string) *Error {
	switch code {
	case "READ_FAILED":
		return NewError(provider, code, "failed to read routing provider response", ErrProviderUnavailable)
	case "DECODE_FAILED":
		return NewError(provider, code, "routing provider returned an unreadable response", ErrProviderUnavailable)
	default:
		return NewError(provider, code, "failed to reach routing provider", ErrProviderUnavailable)
	}
}

// StatusError classifies a non-200 HTTP answer. detail, when set, replaces
// the generic message for statuses that do not have a fixed one.
func StatusError(provider string, status int, detail string) *Error {
	message := detail
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return NewError(provider, "RATE_LIMIT", "API rate limit exceeded, please try again later", ErrRateLimitExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewError(provider, "FORBIDDEN", "API access denied - check API key configuration", ErrProviderUnavailable)
	case status == http.StatusNotFound:
		return NewError(provider, "NO_ROUTE", "no route found between the given points", ErrNoRouteFound)
	case status == http.StatusBadRequest:
		return NewError(provider, "BAD_REQUEST", message, ErrInvalidRequest)
	case status >= 500:
		return NewError(provider, fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", ErrProviderUnavailable)
	default:
		return NewError(provider, fmt.Sprintf("HTTP_%d", status), message, ErrProviderUnavailable)
	}
}
