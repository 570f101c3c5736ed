package models

// NavigationStartRequest starts navigating a previously computed route.
type NavigationStartRequest struct {
	RouteID string `json:"routeId"`
}

// PositionUpdate is one position sample from the client.
type PositionUpdate struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Heading    *float64   `json:"heading,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	RecordedAt *Timestamp `json:"recordedAt,omitempty"`
}

// NavigationProgress is a snapshot of the caller's navigation session.
type NavigationProgress struct {
	SessionID string `json:"sessionId"`
	RouteID   string `json:"routeId"`
	State     string `json:"state"`

	StepIndex   int    `json:"stepIndex"`
	StepCount   int    `json:"stepCount"`
	Instruction string `json:"instruction"`
	Maneuver    string `json:"maneuver"`

	DistanceToManeuverMeters float64 `json:"distanceToManeuverMeters"`
	DistanceToManeuver       string  `json:"distanceToManeuver"`

	RemainingDistanceMeters  float64 `json:"remainingDistanceMeters"`
	RemainingDurationSeconds float64 `json:"remainingDurationSeconds"`

	OffRouteMeters           float64 `json:"offRouteMeters"`
	CumulativeOffRouteMeters float64 `json:"cumulativeOffRouteMeters"`
	StepAdvanced             bool    `json:"stepAdvanced"`

	Position  *Point    `json:"position,omitempty"`
	UpdatedAt Timestamp `json:"updatedAt"`
}
