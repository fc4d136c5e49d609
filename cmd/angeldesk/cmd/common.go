package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/deals"
	"github.com/sacha-rebbouh/angeldesk/internal/adapters/llm"
	"github.com/sacha-rebbouh/angeldesk/internal/adapters/store"
	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/events"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
	"github.com/sacha-rebbouh/angeldesk/internal/pipeline"
	"github.com/sacha-rebbouh/angeldesk/internal/scoring"
)

// loadConfig loads and validates configuration with CLI flag bindings
// participating in precedence.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if quiet {
		level = "error"
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// app bundles the wired pipeline collaborators shared by the analyze,
// resume and serve commands.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	store   core.AnalysisStore
	deals   *deals.FileProvider
	bus     *events.Bus
	orch    *pipeline.Orchestrator
	resumer *pipeline.ResumeController
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	if cfg.Store.Backend == "sqlite" || cfg.Store.Backend == "json" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(cfg.LLM, log)
	if err != nil {
		return nil, err
	}

	registry, err := agents.Catalog(scoring.NewScorer())
	if err != nil {
		return nil, err
	}

	provider := deals.NewFileProvider(cfg.Deals.Dir)
	bus := events.New(cfg.Events.BufferSize)
	runner := pipeline.NewRunner(client, cfg.LLM.MaxTokens, log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		deals:   provider,
		bus:     bus,
		orch:    pipeline.NewOrchestrator(st, provider, registry, runner, bus, log, cfg.Pipeline),
		resumer: pipeline.NewResumeController(st, provider, registry, runner, bus, log, cfg.Pipeline),
	}, nil
}

func (a *app) close() {
	a.bus.Close()
	if err := store.Close(a.store); err != nil {
		a.log.Warn("closing store", "error", err.Error())
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
