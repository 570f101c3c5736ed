package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/routing"
)

// RoutePlanner plans ranked routes and looks up planned ones.
type RoutePlanner interface {
	Plan(ctx context.Context, origin, destination routing.Coordinate, opts planner.Options) ([]*planner.ScoredRoute, error)
	Route(id string) (*planner.ScoredRoute, error)
}

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	planner RoutePlanner
	clock   clock.Clock
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(p RoutePlanner, clk clock.Clock) *RouteHandler {
	return &RouteHandler{planner: p, clock: clock.OrReal(clk)}
}

// ComputeRoutes handles POST /v1/routes:compute - compute ranked, safety-scored routes.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	fieldErrors := append(input.Origin.FieldErrors("origin"), input.Destination.FieldErrors("destination")...)
	profile, ok := toProfile(input.Profile)
	if !ok {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "profile", Message: "must be one of WALK, BIKE, DRIVE", Code: "INVALID_ENUM",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	alternatives := true
	if input.Alternatives != nil {
		alternatives = *input.Alternatives
	}

	routes, err := h.planner.Plan(r.Context(), input.Origin.Coordinate(), input.Destination.Coordinate(), planner.Options{
		Profile:       profile,
		Alternatives:  alternatives,
		AvoidHighways: input.AvoidHighways,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toRouteResponse(routes, models.Timestamp(h.clock.Now())))
}

// GetRoute handles GET /v1/routes/{routeId} - fetch a previously computed route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.planner.Route(chi.URLParam(r, "routeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toScoredRoute(0, route))
}
