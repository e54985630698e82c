package main

import (
	"path/filepath"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/config"
	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/registry"
	"github.com/rigflow/rigflow/internal/store"
)

// AppContext bundles the long-lived services a command needs: the event
// bus, the plugin catalog, the device registry, the document stores and
// the execution engine.
type AppContext struct {
	Config     *config.Config
	Log        *logger.Logger
	Bus        *bus.Bus
	Catalog    *catalog.Catalog
	Registry   *registry.Registry
	Pipelines  *store.PipelineStore
	Composites *store.CompositeStore
	Engine     *engine.Engine
}

// loadConfig resolves the effective configuration for a command run.
// --verbose forces debug logging regardless of the configured level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newAppContext wires the runtime: logger, bus, catalog with the
// compiled-in plugin builders, device registry, stores and engine.
func newAppContext(cfg *config.Config) (*AppContext, error) {
	log, err := logger.New(logger.Options{
		Level:         cfg.Logging.Level,
		HumanReadable: cfg.Logging.HumanReadable,
	})
	if err != nil {
		return nil, err
	}

	b := bus.New(log)

	cat := catalog.New(cfg.Plugins.Dir, log)
	RegisterPlugins(cat)
	if _, err := cat.Discover(); err != nil {
		return nil, err
	}

	reg := registry.New(cat, b, log)

	pipelines, err := store.NewPipelineStore(filepath.Join(cfg.Storage.DataDir, "pipelines"), log)
	if err != nil {
		return nil, err
	}
	composites, err := store.NewCompositeStore(filepath.Join(cfg.Storage.DataDir, "composites"), log)
	if err != nil {
		return nil, err
	}

	return &AppContext{
		Config:     cfg,
		Log:        log,
		Bus:        b,
		Catalog:    cat,
		Registry:   reg,
		Pipelines:  pipelines,
		Composites: composites,
		Engine:     engine.New(reg, cat, composites, b, log),
	}, nil
}
