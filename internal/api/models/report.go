package models

// ReportCreateRequest submits a community safety report.
type ReportCreateRequest struct {
	Location    *Point `json:"location"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// Report is a stored community safety report.
type Report struct {
	ID          string    `json:"id"`
	Location    Point     `json:"location"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
}
