// Package app wires stores, caches and services from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/andresuchdata/restock-advisor/internal/cache"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/drive"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/andresuchdata/restock-advisor/internal/pipeline"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/andresuchdata/restock-advisor/internal/repository/postgres"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/andresuchdata/restock-advisor/internal/storage"
	"github.com/rs/zerolog/log"
)

type App struct {
	Store        repository.Store
	Restock      *service.RestockService
	Orchestrator *pipeline.Orchestrator
	Importer     *ingest.Importer
	Drive        *drive.Service
	DriveSync    *drive.Syncer

	closers []io.Closer
}

// OpenStore returns the repositories selected by cfg.Driver. dbURL, when set,
// takes precedence over the configured connection and uses the pgx driver.
func OpenStore(ctx context.Context, cfg *config.DatabaseConfig, dbURL string) (repository.Store, io.Closer, error) {
	switch {
	case dbURL != "":
		db, err := postgres.Open(dbURL)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return repository.Store{}, nil, err
		}
		return db.Repositories(), db, nil
	case cfg.Driver == "memory":
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.NewStore().Repositories(), nil, nil
	case cfg.Driver == "postgres" || cfg.Driver == "":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return repository.Store{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			return repository.Store{}, nil, err
		}
		return db.Repositories(), db, nil
	default:
		return repository.Store{}, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// New builds the application over store.
func New(ctx context.Context, cfg *config.Config, store repository.Store) (*App, error) {
	models, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("forecast cache unavailable, continuing without cache")
		forecastCache = cache.NewNoopForecastCache()
	}

	restock, err := service.NewRestockService(store, models, forecastCache, cfg.Forecast, cfg.Alert)
	if err != nil {
		return nil, err
	}

	runnerCfg := pipeline.DefaultRunnerConfig()
	if cfg.Forecast.WorkerCount > 0 {
		runnerCfg.WorkerCount = cfg.Forecast.WorkerCount
	}
	runnerCfg.Retrain = cfg.Schedule.Retrain

	a := &App{
		Store:        store,
		Restock:      restock,
		Orchestrator: pipeline.NewOrchestrator(restock, pipeline.NewRunner(restock, store.Runs, runnerCfg), runnerCfg),
		Importer:     ingest.NewImporter(store.Products, store.Sales, ingest.WithInvalidator(forecastCache)),
	}

	if cfg.Drive.CredentialsJSON != "" {
		svc, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			log.Warn().Err(err).Msg("drive import disabled")
		} else {
			a.Drive = svc
			a.DriveSync = drive.NewSyncer(svc, a.Importer)
		}
	}

	return a, nil
}

// DriveFiles returns the Drive client as a FileSource, or nil when Drive is
// not configured.
func (a *App) DriveFiles() drive.FileSource {
	if a.Drive == nil {
		return nil
	}
	return a.Drive
}

// AddCloser registers c to be closed by Close.
func (a *App) AddCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
