package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/clock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func createTestJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.saferoute.app",
		Audience:   "saferoute-api",
	})
}

func serveAuth(t *testing.T, validator middleware.TokenValidator, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var userID string
	handler := middleware.Auth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/navigation/session", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, userID
}

func TestAuth_Rejections(t *testing.T) {
	jwtService := createTestJWTService()

	expiredSigner := auth.NewJWTService(auth.JWTConfig{
		SigningKey:  "test-secret-key-for-testing-only",
		Issuer:      "https://api.saferoute.app",
		Audience:    "saferoute-api",
		Expiry:     time.Minute,
		Clock:       clock.NewFixed(time.Now().Add(-time.Hour)),
	})
	expired, _, err := expiredSigner.GenerateAccessToken("usr_late")
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		detail    string
		challenge string
	}{
		{"missing header", "", "missing authorization header", `Bearer realm="saferoute"`},
		{"basic auth", "Basic dXNlcjpwYXNz", "invalid authorization header format", `Bearer realm="saferoute"`},
		{"no scheme", "token123", "invalid authorization header format", `Bearer realm="saferoute"`},
		{"bare scheme", "Bearer", "invalid authorization header format", `Bearer realm="saferoute"`},
		{"empty token", "Bearer   ", "missing bearer token", `Bearer realm="saferoute"`},
		{"garbage token", "Bearer invalid.jwt.token", "invalid access token", `Bearer realm="saferoute", error="invalid_token"`},
		{"expired token", "Bearer " + expired, "access token has expired", `Bearer realm="saferoute", error="invalid_token"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, userID := serveAuth(t, jwtService, tt.header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, userID)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.challenge, rec.Header().Get("WWW-Authenticate"))
			assert.Contains(t, rec.Body.String(), tt.detail)
		})
	}
}

func TestAuth_ValidToken(t *testing.T) {
	jwtService := createTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("usr_walker")
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		t.Run(scheme, func(t *testing.T) {
			rec, userID := serveAuth(t, jwtService, scheme+" "+token)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "usr_walker", userID)
			assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuth_AcceptsServiceValidator(t *testing.T) {
	jwtService := createTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("usr_service")
	require.NoError(t, err)

	rec, userID := serveAuth(t, auth.NewService(auth.ServiceConfig{JWTService: jwtService}), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr_service", userID)
}

func TestWithUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))

	ctx := middleware.WithUserID(req.Context(), "usr_ctx")
	assert.Equal(t, "usr_ctx", middleware.GetUserID(ctx))
}
