// Package config loads service configuration from the environment, reading
// a .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service and the CLI.
type Config struct {
	Server         ServerConfig
	OpenAI         OpenAIConfig
	Maps           MapsConfig
	Session        SessionConfig
	Telemetry      TelemetryConfig
	InteractionLog InteractionLogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	Environment     string
	RequireTLS      bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// OpenAIConfig configures the language model provider.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// MapsConfig configures the place-search and distance provider.
type MapsConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	LookupTimeout time.Duration
	CacheTTL      time.Duration
}

// SessionConfig configures the access gate.
type SessionConfig struct {
	CookieName string
	LoginPath  string
	HomePath   string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

// InteractionLogConfig selects the interaction log backend.
type InteractionLogConfig struct {
	// Path is a directory for the file backend or a *.db file for SQLite.
	// Empty keeps the log in memory.
	Path string
}

// Load reads files (default ".env") into the environment without
// overriding variables already set, then builds a Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("APP_PORT", "8080"),
			Environment:     getEnvOrDefault("APP_ENV", "development"),
			RequireTLS:      p.bool("REQUIRE_TLS", false),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: p.duration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: float32(p.float("OPENAI_TEMPERATURE", 0.2)),
			Timeout:     p.duration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Maps: MapsConfig{
			APIKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
			BaseURL:       os.Getenv("GOOGLE_MAPS_BASE_URL"),
			Timeout:       p.duration("GOOGLE_MAPS_TIMEOUT", 10*time.Second),
			LookupTimeout: p.duration("GOOGLE_MAPS_LOOKUP_TIMEOUT", 5*time.Second),
			CacheTTL:      p.duration("GOOGLE_MAPS_CACHE_TTL", 5*time.Minute),
		},
		Session: SessionConfig{
			CookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "firebaseIdToken"),
			LoginPath:  getEnvOrDefault("SESSION_LOGIN_PATH", "/login"),
			HomePath:   getEnvOrDefault("SESSION_HOME_PATH", "/"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.bool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		InteractionLog: InteractionLogConfig{
			Path: os.Getenv("INTERACTION_LOG_PATH"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the API server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("OPENAI_TEMPERATURE %v out of range [0, 2]", c.OpenAI.Temperature))
	}
	if !strings.HasPrefix(c.Session.LoginPath, "/") || !strings.HasPrefix(c.Session.HomePath, "/") {
		errs = append(errs, errors.New("SESSION_LOGIN_PATH and SESSION_HOME_PATH must be absolute paths"))
	}
	return errors.Join(errs...)
}

// MapsEnabled reports whether a maps API key is configured.
func (c Config) MapsEnabled() bool {
	return c.Maps.APIKey != ""
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
