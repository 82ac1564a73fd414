package models

// Health is the body of GET /health.
type Health struct {
	Status HealthStatus `json:"status"`
}

// SystemStatus is the body of GET /api/status.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Version   string           `json:"version,omitempty"`
	Time      Timestamp        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
}

// ProviderStatus reports the state of one upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
