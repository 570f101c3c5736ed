package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// requestUser is filled in by Auth so the request log can name the caller.
type requestUser struct {
	id string
}

type requestUserKey struct{}

func recordUser(ctx context.Context, userID string) {
	if u, ok := ctx.Value(requestUserKey{}).(*requestUser); ok {
		u.id = userID
	}
}

// quietRoutes answer often enough that successful calls are logged at debug.
var quietRoutes = map[string]bool{
	"/v1/navigation/session/positions": true,
	"/v1/ops/health":                   true,
	"/v1/ops/ready":                    true,
}

// Logger writes one line per request. Only the path is logged; query
// strings may carry coordinates.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &requestUser{}
			r = r.WithContext(context.WithValue(r.Context(), requestUserKey{}, user))

			captured := serveCaptured(next, w, r)
			route := routePattern(r)

			var event *zerolog.Event
			switch {
			case captured.Code >= http.StatusInternalServerError:
				event = log.Error()
			case captured.Code >= http.StatusBadRequest:
				event = log.Warn()
			case quietRoutes[route]:
				event = log.Debug()
			default:
				event = log.Info()
			}

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				event = event.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}
			if user.id != "" {
				event = event.Str("user_id", user.id)
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("status", captured.Code).
				Int64("bytes", captured.Written).
				Dur("duration", captured.Duration).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
