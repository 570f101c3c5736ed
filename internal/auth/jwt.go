package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saferoute/saferoute/internal/clock"
)

// Access tokens are short-lived HS256 JWTs sent as a Bearer token. The user
// id they carry keys the caller's navigation session and alert identity.
// There is no refresh flow; clients request a new token when one expires.
//
// Each token names its signing key in the kid header. Retired keys stay
// accepted until the tokens they signed have expired, so a signing key can
// be rotated without logging every navigator out mid-route.

// DefaultAccessTokenExpiry is how long access tokens are valid.
const DefaultAccessTokenExpiry = 1 * time.Hour

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSubject     = errors.New("missing token subject")
)

// JWTClaims are the claims in an access token.
type JWTClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey signs new tokens.
	SigningKey string

	// PreviousSigningKeys still verify tokens but never sign.
	PreviousSigningKeys []string

	Issuer   string
	Audience string

	// Expiry overrides DefaultAccessTokenExpiry.
	Expiry time.Duration

	Clock clock.Clock
}

// JWTService issues and verifies access tokens.
type JWTService struct {
	signingKID string
	keys       map[string][]byte
	issuer     string
	audience   string
	expiry     time.Duration
	clock      clock.Clock
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultAccessTokenExpiry
	}

	s := &JWTService{
		signingKID: keyID(cfg.SigningKey),
		keys:       make(map[string][]byte, 1+len(cfg.PreviousSigningKeys)),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		expiry:     expiry,
		clock:      clock.OrReal(cfg.Clock),
	}
	for _, key := range cfg.PreviousSigningKeys {
		if key != "" {
			s.keys[keyID(key)] = []byte(key)
		}
	}
	s.keys[s.signingKID] = []byte(cfg.SigningKey)
	return s
}

// keyID derives a stable, non-reversible identifier for a key.
func keyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// GenerateAccessToken signs a token for userID with the current key.
func (s *JWTService) GenerateAccessToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        newTokenID(),
		},
		UserID: userID,
	})
	token.Header["kid"] = s.signingKID

	signed, err := token.SignedString(s.keys[s.signingKID])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// verificationKey picks the key named by the token. Tokens without a kid
// predate rotation and are checked against the current key.
func (s *JWTService) verificationKey(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return s.keys[s.signingKID], nil
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

// ParseAccessToken verifies a token and returns its claims.
func (s *JWTService) ParseAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, s.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// ValidateAccessToken verifies a token and returns the user id it was issued to.
func (s *JWTService) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func newTokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
