package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/clock"
)

func newJWTService(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newJWTService("test-secret-key-for-testing-only", "https://api.saferoute.app", "saferoute-api")

	token, expiresAt, err := svc.GenerateAccessToken("usr_test123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_test123", claims.UserID)
	assert.Equal(t, "usr_test123", claims.Subject)
	assert.Equal(t, "https://api.saferoute.app", claims.Issuer)

	userID, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_test123", userID)
}

func TestJWTService_EmptySubject(t *testing.T) {
	svc := newJWTService("k", "i", "a")

	_, _, err := svc.GenerateAccessToken("")
	assert.ErrorIs(t, err, auth.ErrMissingSubject)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newJWTService("test-secret-key-for-testing-only", "https://api.saferoute.app", "saferoute-api")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "i",
		Audience:   "a",
		Expiry:     10 * time.Minute,
		Clock:      clk,
	})

	token, expiresAt, err := svc.GenerateAccessToken("usr_1")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(10*time.Minute), expiresAt)

	clk.Advance(11 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_Mismatches(t *testing.T) {
	tests := []struct {
		name     string
		verifier *auth.JWTService
	}{
		{"wrong signing key", newJWTService("key-two", "issuer", "audience")},
		{"wrong issuer", newJWTService("key-one", "issuer-two", "audience")},
		{"wrong audience", newJWTService("key-one", "issuer", "audience-two")},
	}

	token, _, err := newJWTService("key-one", "issuer", "audience").GenerateAccessToken("usr_test123")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.ValidateAccessToken(token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_KeyRotation(t *testing.T) {
	oldSigner := newJWTService("key-2025", "issuer", "audience")
	oldToken, _, err := oldSigner.GenerateAccessToken("usr_walker")
	require.NoError(t, err)

	rotated := auth.NewJWTService(auth.JWTConfig{
		SigningKey:          "key-2026",
		PreviousSigningKeys: []string{"key-2025"},
		Issuer:              "issuer",
		Audience:            "audience",
	})

	userID, err := rotated.ValidateAccessToken(oldToken)
	require.NoError(t, err, "tokens from the retired key stay valid")
	assert.Equal(t, "usr_walker", userID)

	newToken, _, err := rotated.GenerateAccessToken("usr_walker")
	require.NoError(t, err)
	_, err = oldSigner.ValidateAccessToken(newToken)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken, "the retired signer does not know the new key")

	dropped := newJWTService("key-2026", "issuer", "audience")
	_, err = dropped.ValidateAccessToken(oldToken)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken, "once the old key is dropped its tokens fail")
}

func TestService_IssueDevToken(t *testing.T) {
	jwtSvc := newJWTService("k", "i", "a")

	t.Run("disabled", func(t *testing.T) {
		svc := auth.NewService(auth.ServiceConfig{JWTService: jwtSvc})
		_, err := svc.IssueDevToken(auth.DevTokenRequest{})
		assert.ErrorIs(t, err, auth.ErrDevModeDisabled)
	})

	t.Run("generated user", func(t *testing.T) {
		svc := auth.NewService(auth.ServiceConfig{JWTService: jwtSvc, DevMode: true})
		resp, err := svc.IssueDevToken(auth.DevTokenRequest{})
		require.NoError(t, err)
		assert.Regexp(t, `^usr_[0-9a-f]{32}$`, resp.UserID)
		assert.Equal(t, "Bearer", resp.TokenType)

		userID, err := svc.ValidateAccessToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, resp.UserID, userID)
	})

	t.Run("requested user", func(t *testing.T) {
		svc := auth.NewService(auth.ServiceConfig{JWTService: jwtSvc, DevMode: true})
		resp, err := svc.IssueDevToken(auth.DevTokenRequest{UserID: "usr_alice"})
		require.NoError(t, err)
		assert.Equal(t, "usr_alice", resp.UserID)
	})

	t.Run("rejected user ids", func(t *testing.T) {
		svc := auth.NewService(auth.ServiceConfig{JWTService: jwtSvc, DevMode: true})
		for _, id := range []string{"usr alice", "usr/alice", strings.Repeat("a", 65)} {
			_, err := svc.IssueDevToken(auth.DevTokenRequest{UserID: id})
			assert.ErrorIs(t, err, auth.ErrInvalidUserID, id)
		}
	})
}
