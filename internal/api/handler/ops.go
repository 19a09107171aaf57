package handler

import (
	"net/http"
	"time"

	"github.com/ai4care/ai4care/internal/api/models"
	"github.com/ai4care/ai4care/internal/api/response"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/provider/resilience"
)

// CacheStatter exposes the facility search cache for the status endpoint.
type CacheStatter interface {
	CacheStats() places.CacheStats
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	cache     CacheStatter
	required  []string
}

// OpsConfig configures an OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Cache     CacheStatter
	// Required lists providers that must be registered before the service
	// reports ready.
	Required []string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		cache:     cfg.Cache,
		required:  cfg.Required,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready once every
// required provider is registered; an open circuit does not make it unready
// because the triage and facility endpoints degrade on their own.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	var missing []string
	for _, name := range h.required {
		if h.registry == nil || h.registry.GetHealth(name) == nil {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]any{"missingProviders": missing},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider circuit state and
// facility cache statistics.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			ps := providerStatus(ph)
			status.Providers = append(status.Providers, ps)
			status.Status = worst(status.Status, ps.Status)
		}
	}

	if h.cache != nil {
		stats := h.cache.CacheStats()
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "facility-search-cache",
			Status: models.HealthStatusOK,
			Metrics: map[string]int{
				"totalEntries": stats.TotalEntries,
				"freshEntries": stats.FreshEntries,
				"staleEntries": stats.StaleEntries,
			},
		})
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        ph.CircuitState.String(),
		Requests:            ph.Counts.Requests,
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(ph.LastFailureAt),
	}

	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}

	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

var statusRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}
