// Package app assembles the store, cache, artifact store, pipeline runner and
// services from configuration. Both HTTP servers and the CLI start here.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/grocerystock/internal/artifact"
	"github.com/andresuchdata/grocerystock/internal/cache"
	"github.com/andresuchdata/grocerystock/internal/config"
	"github.com/andresuchdata/grocerystock/internal/model"
	"github.com/andresuchdata/grocerystock/internal/pipeline"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/andresuchdata/grocerystock/internal/repository/sqldb"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/andresuchdata/grocerystock/internal/storage"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config    *config.Config
	DB        *sqldb.DB
	Artifacts *artifact.Store
	Publisher *artifact.ObjectPublisher
	Runner    *pipeline.Runner

	InventoryRepo repository.InventoryRepository
	RunRepo       repository.PipelineRunRepository

	Inventory *service.InventoryService
	Analytics *service.AnalyticsService
	Feedback  *service.FeedbackService
}

// Overrides adjusts the pipeline options taken from configuration, e.g. from
// CLI flags. Zero values keep the configured value.
type Overrides struct {
	Horizon       int
	Contamination float64
	Force         bool
	Source        pipeline.RawSource
}

// New opens the database, runs migrations and wires every component.
func New(ctx context.Context, cfg *config.Config, o Overrides) (*App, error) {
	db, err := sqldb.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config:        cfg,
		DB:            db,
		InventoryRepo: sqldb.NewInventoryRepository(db),
		RunRepo:       sqldb.NewPipelineRunRepository(db),
	}

	var storeOpts []artifact.Option
	if cfg.ObjectStorage.Enabled {
		publisher, err := newPublisher(ctx, cfg.ObjectStorage)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.Publisher = publisher
		storeOpts = append(storeOpts, artifact.WithPublisher(publisher))
	}
	a.Artifacts = artifact.NewStore(cfg.App.ArtifactDir, storeOpts...)

	forecaster, err := model.NewForecaster(cfg.Pipeline.ForecastModel)
	if err != nil {
		db.Close()
		return nil, err
	}
	detector, err := model.NewDetector(cfg.Pipeline.AnomalyDetector, cfg.Pipeline.AnomalySeed)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := pipeline.Options{
		Horizon:         cfg.Pipeline.ForecastHorizon,
		Contamination:   cfg.Pipeline.AnomalyContamination,
		RunoutThreshold: cfg.Pipeline.RunoutThreshold,
		Workers:         cfg.Pipeline.Workers,
		Force:           o.Force,
	}
	if o.Horizon != 0 {
		opts.Horizon = o.Horizon
	}
	if o.Contamination != 0 {
		opts.Contamination = o.Contamination
	}

	var source pipeline.RawSource = a.InventoryRepo
	if o.Source != nil {
		source = o.Source
	}
	a.Runner = pipeline.NewRunner(a.Artifacts, source, forecaster, detector, a.RunRepo, opts)

	summaryCache, err := cache.NewStockSummaryCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopStockSummaryCache()
	}

	a.Inventory = service.NewInventoryService(a.InventoryRepo, summaryCache)
	a.Analytics = service.NewAnalyticsService(a.Runner, a.Artifacts, a.Inventory)
	a.Feedback = service.NewFeedbackService(sqldb.NewFeedbackRepository(db))

	log.Debug().
		Str("driver", db.Driver()).
		Str("artifacts", cfg.App.ArtifactDir).
		Str("forecaster", forecaster.Name()).
		Str("detector", detector.Name()).
		Bool("object_storage", cfg.ObjectStorage.Enabled).
		Msg("application wired")
	return a, nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func newPublisher(ctx context.Context, cfg config.ObjectStorageConfig) (*artifact.ObjectPublisher, error) {
	client, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return artifact.NewObjectPublisher(client, cfg.Prefix), nil
}
