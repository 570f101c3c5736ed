// Package handler provides HTTP handlers for the SafeRoute API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// ReadinessCheck is a dependency that must be reachable before traffic is served.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NavigatorCounter reports how many devices hold a live navigator.
type NavigatorCounter interface {
	Len() int
}

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports outbound provider health (optional).
	Registry *resilience.Registry

	// Checks run on every readiness and status request.
	Checks []ReadinessCheck

	// CheckTimeout bounds each check (default: 2 seconds).
	CheckTimeout time.Duration

	// Navigators and AlertBroadcasting feed the activity block of the status.
	Navigators        NavigatorCounter
	AlertBroadcasting bool

	Clock clock.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}
	cfg.Clock = clock.OrReal(cfg.Clock)
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Clock.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Clock.Now()),
	}
	status := http.StatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
			status = http.StatusServiceUnavailable
			if health.Details == nil {
				health.Details = map[string]interface{}{}
			}
			health.Details[s.Name] = *s.Detail
		}
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
//
// Provider outages degrade rather than fail the service: routes fall back to a
// synthetic path and safety factors to their defaults.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.cfg.Clock.Now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providerStatuses(),
		Activity:   models.ActivityStatus{AlertBroadcasting: h.cfg.AlertBroadcasting},
	}
	if h.cfg.Navigators != nil {
		status.Activity.ActiveNavigators = h.cfg.Navigators.Len()
	}

	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, p := range status.Providers {
			if p.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.cfg.Checks))
	for _, c := range h.cfg.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.cfg.CheckTimeout)
		err := c.Check(checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	health := h.cfg.Registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(health))
	for _, ph := range health {
		ps := models.ProviderStatus{
			Provider:     ph.Name,
			Status:       models.HealthStatusOK,
			CircuitState: ph.CircuitState.String(),
			Requests:     ph.Counts.Requests,
			Failures:     ph.Counts.TotalFailures,
			Trips:        ph.Trips,
		}
		switch {
		case ph.IsUnhealthy():
			ps.Status = models.HealthStatusFail
		case ph.IsDegraded():
			ps.Status = models.HealthStatusDegraded
		}
		if ph.StateChangedAt != nil {
			t := models.Timestamp(*ph.StateChangedAt)
			ps.StateChangedAt = &t
		}
		if ph.LastSuccessAt != nil {
			t := models.Timestamp(*ph.LastSuccessAt)
			ps.LastSuccessAt = &t
		}
		if ph.LastFailureAt != nil {
			t := models.Timestamp(*ph.LastFailureAt)
			ps.LastFailureAt = &t
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}
