package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/clock"
)

const (
	// maxAlertMessageLength bounds the free-text part of an alert.
	maxAlertMessageLength = 280

	// alertRetryAfter is the hint sent when the broadcast stream rejects an alert.
	alertRetryAfter = 2 * time.Second
)

// AlertPublisher broadcasts alerts to watchers.
type AlertPublisher interface {
	Publish(ctx context.Context, a alerts.Alert) error
}

// AlertConfig holds configuration for the alert handler.
type AlertConfig struct {
	Publisher AlertPublisher

	// DefaultRadiusMeters applies when the request sets no radius
	// (default: alerts.DefaultRadiusMeters).
	DefaultRadiusMeters float64

	// MaxRadiusMeters caps the requested radius (default: 5000).
	MaxRadiusMeters float64

	Logger zerolog.Logger
	Clock  clock.Clock
}

// AlertHandler handles emergency alert endpoints.
type AlertHandler struct {
	cfg AlertConfig
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(cfg AlertConfig) *AlertHandler {
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = alerts.DefaultRadiusMeters
	}
	if cfg.MaxRadiusMeters <= 0 {
		cfg.MaxRadiusMeters = 5000
	}
	cfg.Clock = clock.OrReal(cfg.Clock)
	return &AlertHandler{cfg: cfg}
}

// CreateAlert handles POST /v1/alerts - raise an emergency alert at the caller's location.
// The alert is accepted once the broadcast stream has taken it; matching against
// watchers happens asynchronously.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input models.AlertCreateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	fieldErrors := input.Location.FieldErrors("location")
	radius := h.cfg.DefaultRadiusMeters
	if input.RadiusMeters != nil {
		radius = *input.RadiusMeters
		if radius <= 0 || radius > h.cfg.MaxRadiusMeters {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field: "radiusMeters", Message: "must be positive and within the maximum radius", Code: "OUT_OF_RANGE",
			})
		}
	}
	if len(input.Message) > maxAlertMessageLength {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "message", Message: "too long", Code: "TOO_LONG",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	if h.cfg.Publisher == nil {
		response.ServiceUnavailable(w, r, "alert broadcasting is not configured")
		return
	}

	alert := alerts.Alert{
		ID:           uuid.NewString(),
		UserID:       userID,
		Origin:       input.Location.Coordinate(),
		RadiusMeters: radius,
		Message:      input.Message,
		CreatedAt:    h.cfg.Clock.Now().UTC(),
	}

	if err := h.cfg.Publisher.Publish(r.Context(), alert); err != nil {
		if errors.Is(err, alerts.ErrInvalidAlert) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.cfg.Logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert")
		response.RetryLater(w, r, "alert could not be broadcast", alertRetryAfter)
		return
	}

	response.Accepted(w, r, "", models.Alert{
		ID:           alert.ID,
		UserID:       alert.UserID,
		Location:     models.NewPoint(alert.Origin),
		RadiusMeters: alert.RadiusMeters,
		Message:      alert.Message,
		CreatedAt:    models.Timestamp(alert.CreatedAt),
	})
}
