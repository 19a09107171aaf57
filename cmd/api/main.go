// Package main provides the entrypoint for the AI4Care API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/api"
	"github.com/ai4care/ai4care/internal/api/handler"
	"github.com/ai4care/ai4care/internal/api/middleware"
	"github.com/ai4care/ai4care/internal/config"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/places/googlemaps"
	"github.com/ai4care/ai4care/internal/prompt/openai"
	"github.com/ai4care/ai4care/internal/provider/resilience"
	"github.com/ai4care/ai4care/internal/telemetry"
	"github.com/ai4care/ai4care/internal/triage"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ai4care-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AI4Care API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()
	required := []string{openai.ProviderName}

	// Language model and triage pipeline
	model, err := openai.New(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
		Registry:    registry,
		Logger:      log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create language model client")
	}

	pipeline, err := triage.NewPipeline(triage.PipelineConfig{
		Model:     model,
		ModelName: cfg.OpenAI.Model,
		Metrics:   providerMetrics,
		Verdicts:  providerMetrics,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create triage pipeline")
	}
	log.Info().Str("model", cfg.OpenAI.Model).Msg("triage pipeline initialized")

	// Facility locator, only with a maps key
	var (
		facilities handler.FacilityLocator
		cache      handler.CacheStatter
	)
	if cfg.MapsEnabled() {
		maps := googlemaps.NewClient(googlemaps.ClientConfig{
			APIKey:   cfg.Maps.APIKey,
			BaseURL:  cfg.Maps.BaseURL,
			Timeout:  cfg.Maps.Timeout,
			Registry: registry,
			Metrics:  providerMetrics,
			Logger:   log,
		})
		locator := places.NewLocator(places.LocatorConfig{
			Search:        maps,
			Distances:     maps,
			Geocoder:      maps,
			Logger:        log,
			Metrics:       providerMetrics,
			LookupTimeout: cfg.Maps.LookupTimeout,
			CacheTTL:      cfg.Maps.CacheTTL,
		})
		facilities, cache = locator, locator
		required = append(required, googlemaps.ProviderName)
		log.Info().Msg("facility locator initialized")
	} else {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set - nearby ER search disabled")
	}

	router, err := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           httpMetrics,
		RequireTLS:        cfg.Server.RequireTLS,
		Triage:            pipeline,
		Facilities:        facilities,
		Cache:             cache,
		Registry:          registry,
		RequiredProviders: required,
		Session: middleware.AccessGateConfig{
			CookieName: cfg.Session.CookieName,
			LoginPath:  cfg.Session.LoginPath,
			HomePath:   cfg.Session.HomePath,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create router")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("env", cfg.Server.Environment).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
