package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api/middleware"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

// loggedRouter serves every test route with the given status.
func loggedRouter(log zerolog.Logger, status int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger(log))
	write := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("response body"))
	}
	r.Get("/v1/routes/{routeId}", write)
	r.Post("/v1/navigation/session/positions", write)
	return r
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer

	req := httptest.NewRequest(http.MethodGet, "/v1/routes/rt_42?origin=52.37,4.89", http.NoBody)
	req.Header.Set("User-Agent", "saferoute-ios/2.1")
	loggedRouter(zerolog.New(&buf), http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/routes/{routeId}", entry["route"])
	assert.Equal(t, "/v1/routes/rt_42", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(len("response body")), entry["bytes"])
	assert.Equal(t, "saferoute-ios/2.1", entry["user_agent"])
	assert.Contains(t, entry, "duration")
	assert.NotContains(t, buf.String(), "52.37")
	assert.NotContains(t, entry, "user_id")
	assert.NotContains(t, entry, "trace_id")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
		level  string
	}{
		{"position update", http.MethodPost, "/v1/navigation/session/positions", http.StatusOK, "debug"},
		{"rejected position update", http.MethodPost, "/v1/navigation/session/positions", http.StatusNotFound, "warn"},
		{"route lookup", http.MethodGet, "/v1/routes/rt_1", http.StatusOK, "info"},
		{"client error", http.MethodGet, "/v1/routes/rt_1", http.StatusBadRequest, "warn"},
		{"server error", http.MethodGet, "/v1/routes/rt_1", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			loggedRouter(zerolog.New(&buf), tt.status).ServeHTTP(httptest.NewRecorder(), req)

			entry := logLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestLogger_IncludesAuthenticatedUser(t *testing.T) {
	var buf bytes.Buffer

	jwtService := createTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("usr_walker")
	require.NoError(t, err)

	handler := middleware.Logger(zerolog.New(&buf))(middleware.Auth(jwtService)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/v1/navigation/session", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "usr_walker", logLine(t, &buf)["user_id"])
}

func TestLogger_CorrelatesRequestAndTrace(t *testing.T) {
	sr := setupTestTracer(t)
	var buf bytes.Buffer

	handler := middleware.RequestID(
		middleware.Tracing("saferoute-api")(
			middleware.Logger(zerolog.New(&buf))(okHandler()),
		),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	entry := logLine(t, &buf)
	assert.Contains(t, entry["request_id"], "req_")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, spans[0].SpanContext().SpanID().String(), entry["span_id"])
}
