package models

// Health is the liveness and readiness payload.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the authenticated operator view: dependencies, upstream
// providers and live activity.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
	Activity   ActivityStatus    `json:"activity"`
}

// SubsystemStatus is the result of one readiness check.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus summarizes an upstream provider's circuit.
type ProviderStatus struct {
	Provider       string       `json:"provider"`
	Status         HealthStatus `json:"status"`
	CircuitState   string       `json:"circuitState"`
	Requests       uint32       `json:"requests"`
	Failures       uint32       `json:"failures"`
	Trips          int          `json:"trips"`
	StateChangedAt *Timestamp   `json:"stateChangedAt,omitempty"`
	LastSuccessAt  *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt  *Timestamp   `json:"lastFailureAt,omitempty"`
	Message        *string      `json:"message,omitempty"`
}

// ActivityStatus reports live load on this instance.
type ActivityStatus struct {
	ActiveNavigators  int  `json:"activeNavigators"`
	AlertBroadcasting bool `json:"alertBroadcasting"`
}
