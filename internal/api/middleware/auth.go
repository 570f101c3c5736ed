package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/auth"
)

type userIDKey struct{}

// TokenValidator resolves a bearer token to the user it was issued to.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (string, error)
}

var (
	errNoCredentials = errors.New("missing authorization header")
	errNotBearer     = errors.New("invalid authorization header format")
	errEmptyToken    = errors.New("missing bearer token")
)

// Auth requires a valid bearer token and puts its user on the context,
// the request span and the access log. Failures are 401 problems with an
// RFC 6750 WWW-Authenticate challenge.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				challenge(w, r, "", err.Error())
				return
			}

			userID, err := validator.ValidateAccessToken(token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrAccessTokenExpired):
				challenge(w, r, "invalid_token", "access token has expired")
				return
			case errors.Is(err, auth.ErrInvalidAccessToken):
				challenge(w, r, "invalid_token", "invalid access token")
				return
			default:
				challenge(w, r, "", "authentication failed")
				return
			}

			recordUser(r.Context(), userID)
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", userID))
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// challenge writes the 401. The problem is built here rather than through the
// response package, which imports this one.
func challenge(w http.ResponseWriter, r *http.Request, code, detail string) {
	value := `Bearer realm="saferoute"`
	if code != "" {
		value += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", value)

	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// WithUserID returns a copy of ctx carrying the authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the authenticated user, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
