package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDevModeDisabled is returned when development tokens are requested outside dev mode.
	ErrDevModeDisabled = errors.New("development authentication is disabled")

	// ErrInvalidUserID is returned for a requested user id that could not key a session.
	ErrInvalidUserID = errors.New("invalid user id")
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// TokenResponse is returned when an access token is issued.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      string    `json:"userId"`
}

// DevTokenRequest is the request for development authentication.
type DevTokenRequest struct {
	// UserID is an optional user ID. If not provided, a new one is generated.
	UserID string `json:"userId,omitempty"`
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService

	// DevMode enables IssueDevToken. Never enable in production.
	DevMode bool
}

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	devMode    bool
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		devMode:    cfg.DevMode,
	}
}

// ValidateAccessToken validates an access token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	return s.jwtService.ValidateAccessToken(tokenString)
}

// DevModeEnabled reports whether development tokens can be issued.
func (s *Service) DevModeEnabled() bool {
	return s.devMode
}

// IssueDevToken returns an access token for a test user.
// This is intended for local development only.
func (s *Service) IssueDevToken(req DevTokenRequest) (*TokenResponse, error) {
	if !s.devMode {
		return nil, ErrDevModeDisabled
	}

	userID := req.UserID
	if userID == "" {
		userID = generateUserID()
	} else if !userIDPattern.MatchString(userID) {
		return nil, ErrInvalidUserID
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		UserID:      userID,
	}, nil
}

func generateUserID() string {
	return "usr_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
