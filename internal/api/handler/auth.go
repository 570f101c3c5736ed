package handler

import (
	"errors"
	"net/http"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/auth"
)

// AuthHandler serves token issuance.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// DevLogin handles POST /v1/auth/dev. Outside dev mode the endpoint does not
// exist as far as callers can tell.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authService.DevModeEnabled() {
		response.NotFound(w, r, "development authentication is not enabled")
		return
	}

	var req auth.DevTokenRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	tokenResp, err := h.authService.IssueDevToken(req)
	switch {
	case errors.Is(err, auth.ErrInvalidUserID):
		response.BadRequest(w, r, "invalid user id", []models.FieldError{
			{Field: "userId", Message: "must be 1-64 letters, digits, '-' or '_'", Code: "INVALID_FORMAT"},
		})
	case errors.Is(err, auth.ErrDevModeDisabled):
		response.NotFound(w, r, "development authentication is not enabled")
	case err != nil:
		response.InternalError(w, r, "dev authentication failed")
	default:
		response.JSON(w, r, http.StatusOK, tokenResp)
	}
}
