package googledirections

// Directions API status values.
const (
	statusOK                   = "OK"
	statusZeroResults          = "ZERO_RESULTS"
	statusNotFound             = "NOT_FOUND"
	statusOverQueryLimit       = "OVER_QUERY_LIMIT"
	statusOverDailyLimit       = "OVER_DAILY_LIMIT"
	statusRequestDenied        = "REQUEST_DENIED"
	statusInvalidRequest       = "INVALID_REQUEST"
	statusMaxWaypointsExceeded = "MAX_WAYPOINTS_EXCEEDED"
)

// directionsResponse represents the Directions API response body.
type directionsResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Routes       []apiRoute `json:"routes"`
}

// apiRoute represents a single route in the response.
type apiRoute struct {
	Summary          string      `json:"summary"`
	OverviewPolyline encodedLine `json:"overview_polyline"`
	Legs             []apiLeg    `json:"legs"`
	Warnings         []string    `json:"warnings,omitempty"`
	Bounds           *bounds     `json:"bounds,omitempty"`
	Copyrights       string      `json:"copyrights,omitempty"`
}

// apiLeg is the part of a route between two waypoints.
type apiLeg struct {
	Distance      textValue `json:"distance"`
	Duration      textValue `json:"duration"`
	StartLocation latLng    `json:"start_location"`
	EndLocation   latLng    `json:"end_location"`
	Steps         []apiStep `json:"steps"`
}

// apiStep is a single instruction within a leg.
type apiStep struct {
	HTMLInstructions string      `json:"html_instructions"`
	Maneuver         string      `json:"maneuver,omitempty"`
	Polyline         encodedLine `json:"polyline"`
	StartLocation    latLng      `json:"start_location"`
	EndLocation      latLng      `json:"end_location"`
	Distance         textValue   `json:"distance"`
	Duration         textValue   `json:"duration"`
	TravelMode       string      `json:"travel_mode,omitempty"`
}

type encodedLine struct {
	Points string `json:"points"`
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type bounds struct {
	Northeast latLng `json:"northeast"`
	Southwest latLng `json:"southwest"`
}
