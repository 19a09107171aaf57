// Package api provides the HTTP API for AI4Care.
package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/api/handler"
	"github.com/ai4care/ai4care/internal/api/middleware"
	"github.com/ai4care/ai4care/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// Triage serves the /api/triage endpoints (required).
	Triage handler.TriageService

	// Facilities serves /api/er. Nil answers nearby searches with an empty
	// list and address searches with 503.
	Facilities handler.FacilityLocator

	// Cache, when set, is reported by /v1/ops/status.
	Cache handler.CacheStatter

	// Registry tracks provider circuit state for the ops endpoints.
	Registry *resilience.Registry

	// RequiredProviders must be registered for /v1/ops/ready to pass.
	RequiredProviders []string

	// Session configures the page access gate and subject peek.
	Session middleware.AccessGateConfig
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) (*chi.Mux, error) {
	if cfg.Triage == nil {
		return nil, fmt.Errorf("api: triage service is required")
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ai4care-api"
	}

	pages, err := handler.NewPageHandler()
	if err != nil {
		return nil, fmt.Errorf("api: load pages: %w", err)
	}

	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.SessionSubject(cfg.Session.CookieName))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Cache:     cfg.Cache,
		Required:  cfg.RequiredProviders,
	})
	triageHandler := handler.NewTriageHandler(cfg.Triage, cfg.Logger)
	facilityHandler := handler.NewFacilityHandler(cfg.Facilities, cfg.Logger)

	// Pages behind the session cookie gate
	r.Group(func(r chi.Router) {
		r.Use(middleware.AccessGate(cfg.Session))
		r.Get("/", pages.Home)
		r.Get("/login", pages.Login)
	})
	r.Get("/static/*", pages.Static)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireJSON)

		r.Route("/triage", func(r chi.Router) {
			// one budget shared by every endpoint that calls the model
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitBySubject(middleware.ModelRateLimit))
				r.Post("/", triageHandler.Assess)
				r.Post("/explanation", triageHandler.Explain)
				r.Post("/urgency", triageHandler.Urgency)
			})
			r.With(middleware.RateLimitByIP(middleware.StandardRateLimit)).Get("/guidance/{level}", triageHandler.Guidance)
		})

		r.Route("/er", func(r chi.Router) {
			r.Use(middleware.RateLimitBySubject(middleware.FacilityRateLimit))
			r.Get("/", facilityHandler.NearbyER)
			r.Get("/search", facilityHandler.SearchByAddress)
		})
	})

	r.Route("/v1/ops", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.Get("/status", opsHandler.SystemStatus)
	})

	return r, nil
}
