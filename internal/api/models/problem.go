package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.saferoute.app/problems/"

// Problem types served by the API.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeTLSRequired     = problemBase + "tls-required"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeNoRoute         = problemBase + "no-route"
	ProblemTypeInvalidSession  = problemBase + "invalid-session"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeUnsupportedBody = problemBase + "unsupported-media-type"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
)

// problemCatalog fixes the title and status of each type so every response
// of a kind looks the same.
var problemCatalog = map[string]struct {
	title  string
	status int
}{
	ProblemTypeValidation:      {"Validation error", http.StatusBadRequest},
	ProblemTypeUnauthorized:    {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeTLSRequired:     {"TLS required", http.StatusForbidden},
	ProblemTypeNotFound:        {"Not found", http.StatusNotFound},
	ProblemTypeNoRoute:         {"No route found", http.StatusUnprocessableEntity},
	ProblemTypeInvalidSession:  {"Invalid navigation session", http.StatusConflict},
	ProblemTypeTooManyRequests: {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeUnsupportedBody: {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeInternal:        {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUnavailable:     {"Service unavailable", http.StatusServiceUnavailable},
}

// NewProblem builds a problem of a catalogued type. Unknown types are
// reported as internal errors.
func NewProblem(problemType, traceID, detail string) *Problem {
	kind, ok := problemCatalog[problemType]
	if !ok {
		problemType = ProblemTypeInternal
		kind = problemCatalog[problemType]
	}
	return &Problem{
		Type:    problemType,
		Title:   kind.title,
		Status:  kind.status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends the problem, echoing the trace id as the request id header.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p) //nolint:errcheck // client went away
}

// NewBadRequest is a 400 carrying field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, traceID, detail)
	p.Errors = errors
	return p
}

// NewUnauthorized is a 401.
func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnauthorized, traceID, detail)
}

// NewTLSRequired is a 403 for plain-HTTP requests behind a TLS-only deployment.
func NewTLSRequired(traceID string) *Problem {
	return NewProblem(ProblemTypeTLSRequired, traceID, "This endpoint requires HTTPS")
}

// NewNotFound is a 404.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, traceID, detail)
}

// NewNoRoute is a 422 for an origin and destination with no path between them.
func NewNoRoute(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNoRoute, traceID, detail)
}

// NewInvalidSession is a 409 for an operation on an inactive navigation session.
func NewInvalidSession(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInvalidSession, traceID, detail)
}

// NewTooManyRequests is a 429.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, traceID, detail)
}

// NewUnsupportedMediaType is a 415 for a body that is not JSON.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnsupportedBody, traceID, detail)
}

// NewInternalError is a 500.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, traceID, detail)
}

// NewServiceUnavailable is a 503.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnavailable, traceID, detail)
}
