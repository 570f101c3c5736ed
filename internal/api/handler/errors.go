package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/routing"
)

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrNoRouteFound):
		response.NoRoute(w, r, "no route could be found between origin and destination")
	case errors.Is(err, planner.ErrRouteNotFound):
		response.NotFound(w, r, "route not found or expired; compute routes again")
	case errors.Is(err, navigation.ErrInvalidSession):
		response.InvalidSession(w, r, err.Error())
	case errors.Is(err, routing.ErrInvalidCoordinates), errors.Is(err, navigation.ErrInvalidPosition):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		response.ServiceUnavailable(w, r, "request timed out")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
