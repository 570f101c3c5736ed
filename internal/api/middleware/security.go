package middleware

import (
	"net/http"
	"strings"

	"github.com/saferoute/saferoute/internal/api/models"
)

// securityHeaders apply to every response. Payloads carry user locations,
// so nothing may be cached by intermediaries.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets the headers above before the handler runs, so a
// handler may still override any of them.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// probePaths stay reachable over plain HTTP so load balancers can health
// check the pod directly.
var probePaths = map[string]struct{}{
	"/v1/ops/health": {},
	"/v1/ops/ready":  {},
}

// RequireTLS rejects requests the load balancer marks as plain HTTP through
// X-Forwarded-Proto. Requests without the header (direct connections, local
// development) and health probes pass.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")))
			if _, probe := probePaths[r.URL.Path]; proto == "" || proto == "https" || probe {
				next.ServeHTTP(w, r)
				return
			}

			problem := models.NewTLSRequired(GetRequestID(r.Context()))
			problem.Instance = r.URL.Path
			problem.Write(w)
		})
	}
}
