package models

// AlertCreateRequest raises an emergency alert at the caller's location.
type AlertCreateRequest struct {
	Location     *Point   `json:"location"`
	RadiusMeters *float64 `json:"radiusMeters,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Alert is an emergency alert as broadcast to nearby watchers.
type Alert struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Location     Point     `json:"location"`
	RadiusMeters float64   `json:"radiusMeters"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    Timestamp `json:"createdAt"`
}
