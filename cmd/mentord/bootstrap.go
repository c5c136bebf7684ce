package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/agents"
	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/config"
	"github.com/fyrsmithlabs/mentord/internal/diagram"
	"github.com/fyrsmithlabs/mentord/internal/intent"
	"github.com/fyrsmithlabs/mentord/internal/logging"
	"github.com/fyrsmithlabs/mentord/internal/orchestrator"
	"github.com/fyrsmithlabs/mentord/internal/retrieval"
	"github.com/fyrsmithlabs/mentord/internal/review"
	"github.com/fyrsmithlabs/mentord/internal/session"
	"github.com/fyrsmithlabs/mentord/internal/telemetry"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *session.Store
	runner *orchestrator.Runner

	closers []func() error
}

// bootstrap loads configuration and wires the full service graph.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, "mentord")
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	tel, err := telemetry.New(ctx, cfg.Telemetry, logger.Named("telemetry"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return tel.Shutdown(context.Background())
	})

	backend, err := a.openBackend()
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(backend, logger.Named("session"))
	if err != nil {
		return nil, err
	}
	a.store = store

	var refs *retrieval.Store
	if cfg.Retrieval.Enabled {
		refs, err = retrieval.NewStore(retrieval.Config{
			Path:       cfg.Retrieval.Path,
			Collection: cfg.Retrieval.Collection,
		}, logger.Named("retrieval"))
		if err != nil {
			// Retrieval only enriches diagram retries; run without it.
			logger.Warn("retrieval store unavailable", zap.Error(err))
		} else if err := refs.Ingest(ctx, retrieval.SyntaxReference()); err != nil {
			logger.Warn("failed to ingest syntax reference", zap.Error(err))
		}
	}

	var validator diagram.Validator = diagram.NopValidator{}
	if cfg.Diagram.ValidatorEnabled {
		validator = diagram.NewCLIValidator(cfg.Diagram.CommandTimeout, logger.Named("diagram"))
	}

	registry := capability.NewAdapterRegistry(logger.Named("capability"))
	agents.RegisterDefaults(registry, agents.Deps{
		Review:    review.NewProtocol(cfg.Review.MinScore, logger.Named("review")),
		Diagrams:  diagram.NewGenerator(),
		Validator: validator,
		Retrieval: refs,
		ExportDir: cfg.Export.Dir,
		Logger:    logger.Named("agents"),
	})

	runner, err := orchestrator.NewRunner(
		store,
		capability.DefaultCatalog(),
		registry,
		intent.NewResolver(nil, logger.Named("intent")),
		logger.Named("orchestrator"),
	)
	if err != nil {
		return nil, err
	}
	a.runner = runner

	return a, nil
}

func (a *app) openBackend() (session.Backend, error) {
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		backend, err := session.NewSQLiteBackend(a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		a.closers = append(a.closers, backend.Close)
		return backend, nil
	default:
		return session.NewMemoryBackend(), nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = logging.Sync(a.logger)
}
