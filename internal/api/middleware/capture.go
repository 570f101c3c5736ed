package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
)

// serveCaptured runs next and reports the status it wrote and the body size.
// httpsnoop keeps http.Flusher and friends visible to inner handlers.
func serveCaptured(next http.Handler, w http.ResponseWriter, r *http.Request) httpsnoop.Metrics {
	return httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
		next.ServeHTTP(ww, r)
	})
}

// routePattern is the matched chi pattern, e.g. /v1/routes/{routeId}.
// Raw paths carry route ids and must not become metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// scheme returns the request scheme as seen by the client.
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
