package handler

import (
	"net/http"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// RouteLookup resolves a planned route by id.
type RouteLookup interface {
	Route(id string) (*planner.ScoredRoute, error)
}

// NavigationHandler handles the caller's navigation session. Each authenticated
// user has at most one session.
type NavigationHandler struct {
	manager *navigation.Manager
	routes  RouteLookup
	clock   clock.Clock
}

// NewNavigationHandler creates a new NavigationHandler.
func NewNavigationHandler(manager *navigation.Manager, routes RouteLookup, clk clock.Clock) *NavigationHandler {
	return &NavigationHandler{manager: manager, routes: routes, clock: clock.OrReal(clk)}
}

// StartSession handles POST /v1/navigation/session - start navigating a computed route.
// Any active session of the caller is stopped first.
func (h *NavigationHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input models.NavigationStartRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.RouteID == "" {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "routeId", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	route, err := h.routes.Route(input.RouteID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.manager.For(userID).Start(route)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/navigation/session", toProgress(session.Progress()))
}

// GetSession handles GET /v1/navigation/session - the caller's latest progress.
// An ended session stays readable until a new one starts.
func (h *NavigationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	progress, err := h.manager.For(userID).Progress()
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toProgress(progress))
}

// UpdatePosition handles POST /v1/navigation/session/positions - feed one position sample.
func (h *NavigationHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input models.PositionUpdate
	if !decodeJSON(w, r, &input) {
		return
	}

	pos := navigation.Position{
		Coordinate: polyline.Coordinate{Lat: input.Lat, Lon: input.Lon},
		Heading:    input.Heading,
		Speed:      input.Speed,
		RecordedAt: h.clock.Now(),
	}
	if input.RecordedAt != nil {
		pos.RecordedAt = input.RecordedAt.Time()
	}
	if !pos.Valid() {
		response.BadRequest(w, r, "validation error", (&models.Point{Lat: input.Lat, Lon: input.Lon}).FieldErrors("position"))
		return
	}

	progress, err := h.manager.For(userID).Update(pos)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toProgress(progress))
}

// Recalculate handles POST /v1/navigation/session:recalculate - plan new routes from
// the caller's last position to the current destination. The client starts one of
// the returned routes to switch.
func (h *NavigationHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	routes, err := h.manager.For(userID).Recalculate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteResponse(routes, models.Timestamp(h.clock.Now())))
}

// StopSession handles DELETE /v1/navigation/session - stop the active session.
func (h *NavigationHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.manager.For(userID).Stop(); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
