// Package handler provides HTTP handlers for the Env Monitor API.
package handler

import (
	"net/http"
	"time"

	"github.com/envmonitor/envmonitor/internal/api/models"
	"github.com/envmonitor/envmonitor/internal/api/response"
	"github.com/envmonitor/envmonitor/internal/provider/resilience"
)

// ProviderHealthSource reports the health of upstream providers.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	providers ProviderHealthSource
}

// NewOpsHandler creates a new OpsHandler. providers may be nil.
func NewOpsHandler(version string, providers ProviderHealthSource) *OpsHandler {
	return &OpsHandler{
		version:   version,
		providers: providers,
	}
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{Status: models.HealthStatusOK})
}

// SystemStatus handles GET /api/status - upstream provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Version:   h.version,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	if h.providers != nil {
		for _, p := range h.providers.GetAllHealth() {
			ps := toProviderStatus(p)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func toProviderStatus(p *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     p.Name,
		Status:       models.HealthStatus(p.Status()),
		CircuitState: p.CircuitState.String(),
	}
	if p.LastSuccessAt != nil {
		ts := models.Timestamp(*p.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if p.LastFailureAt != nil {
		ts := models.Timestamp(*p.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}
