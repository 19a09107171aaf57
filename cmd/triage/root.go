package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ai4care/ai4care/internal/assessment"
	"github.com/ai4care/ai4care/internal/config"
	"github.com/ai4care/ai4care/internal/interactionlog"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/places/googlemaps"
	"github.com/ai4care/ai4care/internal/prompt/openai"
	"github.com/ai4care/ai4care/internal/triage"
	"github.com/ai4care/ai4care/pkg/geo"
)

// facilityFinder is the part of places.Locator the client uses.
type facilityFinder interface {
	NearbyEmergencyRooms(ctx context.Context, origin geo.Point) ([]places.Facility, error)
	SearchByAddress(ctx context.Context, query string) (*places.AddressSearch, error)
}

// app holds what the commands share. Fields left nil are built from the
// configuration on first use.
type app struct {
	envFile string
	logPath string
	verbose bool

	configured bool
	cfg        config.Config
	logger     zerolog.Logger

	triager assessment.Triager
	finder  facilityFinder
	history *interactionlog.Log
	closers []io.Closer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "ai4care",
		Short:   "AI4Care symptom triage",
		Long:    "Describe your symptoms and get an urgency level (red, yellow or green) with next steps.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load")
	root.PersistentFlags().StringVar(&a.logPath, "log-path", "", "Interaction log location: a directory, or a *.db file for SQLite")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newAssessCommand(a))
	root.AddCommand(newHistoryCommand(a))
	root.AddCommand(newGuidanceCommand(a))
	return root
}

func (a *app) configure(ctx context.Context) error {
	if a.configured {
		return nil
	}

	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	path := a.logPath
	if path == "" {
		path = cfg.InteractionLog.Path
	}
	if path == "" {
		path = defaultLogPath()
	}
	storage, closer, err := openStorage(ctx, path)
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.history = interactionlog.New(interactionlog.Config{
		Storage: storage,
		Logger:  a.logger,
	})

	a.configured = true
	return nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// pipeline returns the triager, creating the OpenAI-backed pipeline when
// none was injected.
func (a *app) pipeline() (assessment.Triager, error) {
	if a.triager != nil {
		return a.triager, nil
	}
	if a.cfg.OpenAI.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	model, err := openai.New(openai.Config{
		APIKey:      a.cfg.OpenAI.APIKey,
		BaseURL:     a.cfg.OpenAI.BaseURL,
		Model:       a.cfg.OpenAI.Model,
		Temperature: a.cfg.OpenAI.Temperature,
		Timeout:     a.cfg.OpenAI.Timeout,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, err
	}
	p, err := triage.NewPipeline(triage.PipelineConfig{
		Model:     model,
		ModelName: a.cfg.OpenAI.Model,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.triager = p
	return p, nil
}

// locator returns the facility finder, or nil when no maps key is set.
func (a *app) locator() facilityFinder {
	if a.finder != nil {
		return a.finder
	}
	if !a.cfg.MapsEnabled() {
		return nil
	}

	maps := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:  a.cfg.Maps.APIKey,
		BaseURL: a.cfg.Maps.BaseURL,
		Timeout: a.cfg.Maps.Timeout,
		Logger:  a.logger,
	})
	a.finder = places.NewLocator(places.LocatorConfig{
		Search:        maps,
		Distances:     maps,
		Geocoder:      maps,
		Logger:        a.logger,
		LookupTimeout: a.cfg.Maps.LookupTimeout,
	})
	return a.finder
}

// openStorage picks the interaction log backend from path: empty keeps it in
// memory, *.db or *.sqlite opens SQLite, anything else is a directory.
func openStorage(ctx context.Context, path string) (interactionlog.Storage, io.Closer, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case path == "":
		return interactionlog.NewMemoryStorage(), nil, nil
	case ext == ".db" || ext == ".sqlite":
		s, err := interactionlog.OpenSQLiteStorage(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening interaction log: %w", err)
		}
		return s, s, nil
	default:
		return interactionlog.NewFileStorage(path), nil, nil
	}
}

func defaultLogPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ai4care")
}
