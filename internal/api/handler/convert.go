package handler

import (
	"math"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/routing"
)

func toProfile(p models.Profile) (routing.RouteProfile, bool) {
	switch p {
	case "", models.ProfileWalk:
		return routing.ProfileWalk, true
	case models.ProfileBike:
		return routing.ProfileBike, true
	case models.ProfileDrive:
		return routing.ProfileDrive, true
	default:
		return "", false
	}
}

func toRouteResponse(routes []*planner.ScoredRoute, generatedAt models.Timestamp) models.RouteComputeResponse {
	resp := models.RouteComputeResponse{
		GeneratedAt: generatedAt,
		Routes:      make([]models.ScoredRoute, 0, len(routes)),
	}

	degraded := false
	for i, r := range routes {
		resp.Routes = append(resp.Routes, toScoredRoute(i+1, r))
		if r.Synthetic() {
			resp.Warnings = append(resp.Warnings, models.Warning{
				Code:    models.WarningSyntheticRoute,
				Message: "directions are unavailable; showing a direct path",
			})
		}
		degraded = degraded || r.Degraded()
	}
	if degraded {
		resp.Warnings = append(resp.Warnings, models.Warning{
			Code:    models.WarningDefaultedFactors,
			Message: "some safety factors could not be assessed and use default scores",
		})
	}
	return resp
}

func toScoredRoute(rank int, r *planner.ScoredRoute) models.ScoredRoute {
	c := r.Candidate

	steps := make([]models.Instruction, 0, c.NumSteps())
	for _, s := range c.Steps() {
		steps = append(steps, models.Instruction{
			Text:            s.Instruction,
			Maneuver:        string(s.Maneuver),
			DistanceMeters:  int(math.Round(s.DistanceMeters)),
			DurationSeconds: int(math.Round(s.DurationSeconds)),
			Start:           models.NewPoint(s.Start),
			End:             models.NewPoint(s.End),
		})
	}

	factors := r.Factors()
	assessment := models.SafetyAssessment{
		Score:   r.Overall(),
		Label:   string(r.Label()),
		Factors: make([]models.SafetyFactor, 0, len(factors)),
	}
	for _, f := range factors {
		assessment.Factors = append(assessment.Factors, models.SafetyFactor{
			Factor:      string(f.Factor),
			Score:       f.Score,
			Explanation: f.Explanation,
			Evidence:    f.Evidence,
			Defaulted:   f.Defaulted,
		})
	}

	return models.ScoredRoute{
		ID:              r.ID,
		Rank:            rank,
		Summary:         c.Summary(),
		DistanceMeters:  int(math.Round(c.DistanceMeters())),
		DurationSeconds: int(math.Round(c.DurationSeconds())),
		Geometry:        models.LineString(c.Points()),
		Steps:           steps,
		Safety:          assessment,
		Synthetic:       r.Synthetic(),
		Degraded:        r.Degraded(),
		ScoredAt:        models.Timestamp(r.ScoredAt),
	}
}

func toProgress(p navigation.Progress) models.NavigationProgress {
	out := models.NavigationProgress{
		SessionID:                p.SessionID,
		RouteID:                  p.RouteID,
		State:                    string(p.State),
		StepIndex:                p.StepIndex,
		StepCount:                p.StepCount,
		Instruction:              p.Instruction,
		Maneuver:                 string(p.Maneuver),
		DistanceToManeuverMeters: p.DistanceToManeuverMeters,
		DistanceToManeuver:       p.DistanceToManeuver,
		RemainingDistanceMeters:  p.RemainingDistanceMeters,
		RemainingDurationSeconds: p.RemainingDurationSeconds,
		OffRouteMeters:           p.OffRouteMeters,
		CumulativeOffRouteMeters: p.CumulativeOffRouteMeters,
		StepAdvanced:             p.StepAdvanced,
		UpdatedAt:                models.Timestamp(p.UpdatedAt),
	}
	if p.Position != nil {
		pt := models.NewPoint(*p.Position)
		out.Position = &pt
	}
	return out
}
