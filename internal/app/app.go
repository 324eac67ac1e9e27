package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/tanisharajgor/Mongo-Exploratory/docstore"
	"github.com/tanisharajgor/Mongo-Exploratory/ingest"
	"github.com/tanisharajgor/Mongo-Exploratory/internal/api"
	"github.com/tanisharajgor/Mongo-Exploratory/internal/config"
	"github.com/tanisharajgor/Mongo-Exploratory/internal/metrics"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
	"github.com/tanisharajgor/Mongo-Exploratory/restaurants"
)

// Dependencies are the external collaborators of the application. A nil
// Consumer disables ingestion even when it is configured.
type Dependencies struct {
	Store    docstore.DocumentStore
	Consumer messagebus.Consumer
}

// Application represents the main application instance that holds configuration and dependencies
type Application struct {
	rawconfig  *config.RawConfig
	logger     logging.Logger
	store      docstore.DocumentStore
	repository *restaurants.Repository
	ingester   *ingest.Ingester
	mutex      sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication connects to the configured store and, when ingestion is
// enabled, to the message bus.
func NewApplication(ctx context.Context, cfg *config.RawConfig, logger logging.Logger) (*Application, error) {
	logger.Infow("Opening document store", "database", cfg.Mongo.Database, "collection", cfg.Mongo.Collection)
	store, err := docstore.Open(ctx, cfg.Mongo.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	deps := Dependencies{Store: store}
	if cfg.Ingest.Enabled {
		configMap := messagebus.LoadConfigMap(cfg.Ingest.KafkaConfFile)
		consumer, err := messagebus.NewConsumer(configMap, cfg.Ingest.ConsumerGroup)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create consumer: %w", err)
		}
		deps.Consumer = consumer
	}

	app, err := NewApplicationWithDeps(ctx, cfg, logger, deps)
	if err != nil {
		if deps.Consumer != nil {
			deps.Consumer.Close()
		}
		store.Close()
		return nil, err
	}
	return app, nil
}

// NewApplicationWithDeps builds the application over already opened
// collaborators. The application owns them from here on.
func NewApplicationWithDeps(ctx context.Context, cfg *config.RawConfig, logger logging.Logger, deps Dependencies) (*Application, error) {
	if cfg.Mongo.ResetOnStart {
		logger.Warnw("Dropping database before start", "database", cfg.Mongo.Database)
		if err := deps.Store.Drop(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset database: %w", err)
		}
	}

	coll := metrics.InstrumentCollection(deps.Store.Collection(cfg.Mongo.Collection))
	repo := restaurants.NewRepository(coll, logger.WithField("component", "restaurants"))

	appCtx, cancel := context.WithCancel(context.Background())
	app := &Application{
		rawconfig:  cfg,
		logger:     logger,
		store:      deps.Store,
		repository: repo,
		ctx:        appCtx,
		cancel:     cancel,
	}
	if deps.Consumer != nil {
		app.ingester = ingest.NewIngester(deps.Consumer, repo, ingest.Config{
			Topics:        cfg.Ingest.Topics,
			InsertTimeout: cfg.Ingest.InsertTimeout(),
		}, logger, metrics.IngestRecorder{})
	}
	return app, nil
}

// Config returns the application configuration
func (app *Application) Config() *config.RawConfig {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.rawconfig
}

// Logger returns the application logger
func (app *Application) Logger() logging.Logger {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.logger
}

// Context returns the application context
func (app *Application) Context() context.Context {
	return app.ctx
}

// Repository returns the restaurant queries
func (app *Application) Repository() *restaurants.Repository {
	return app.repository
}

// Ingester returns the bus ingester, nil when ingestion is disabled
func (app *Application) Ingester() *ingest.Ingester {
	return app.ingester
}

// Handler returns the HTTP routes of the service
func (app *Application) Handler() http.Handler {
	return api.NewHandler(app.logger.WithField("component", "api"), app.repository, app.store).Routes()
}

// Start starts ingestion when enabled
func (app *Application) Start() error {
	app.logger.Info("Starting application...")

	if app.ingester != nil {
		if err := app.ingester.Start(); err != nil {
			app.logger.Errorw("Failed to start ingester", "error", err)
			return err
		}
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("Shutting down application...")

	if app.ingester != nil {
		if err := app.ingester.Stop(); err != nil {
			app.logger.Errorw("Error stopping ingester", "error", err)
		}
	}

	var err error
	if app.store != nil {
		if err = app.store.Close(); err != nil {
			app.logger.Errorw("Error closing document store", "error", err)
		}
	}

	app.cancel()

	app.logger.Info("Application shutdown completed")
	return err
}

// IsShuttingDown returns true if the application is shutting down
func (app *Application) IsShuttingDown() bool {
	select {
	case <-app.ctx.Done():
		return true
	default:
		return false
	}
}
