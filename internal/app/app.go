package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/handlers"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/services/cache"
	"github.com/tanglebrook/vicinity/internal/services/enrich"
	"github.com/tanglebrook/vicinity/internal/services/events"
	jobsvc "github.com/tanglebrook/vicinity/internal/services/jobs"
	"github.com/tanglebrook/vicinity/internal/services/llm"
	"github.com/tanglebrook/vicinity/internal/services/pipeline"
	"github.com/tanglebrook/vicinity/internal/services/places"
	"github.com/tanglebrook/vicinity/internal/storage"
	"github.com/tanglebrook/vicinity/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager

	// Core services
	EventService  interfaces.EventService
	LLMService    interfaces.LLMService
	PlacesService interfaces.PlacesService
	CacheService  *cache.Service
	EnrichService *enrich.Service
	Pipeline      interfaces.SearchPipeline
	JobService    interfaces.JobService
	Sweeper       *jobsvc.Sweeper

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	SearchHandler *handlers.SearchHandler
	StatusHandler *handlers.StatusHandler
	ConfigHandler *handlers.ConfigHandler
	LogsHandler   *handlers.LogsHandler
	WSHandler     *handlers.WebSocketHandler
}

// New creates the application with all services wired in dependency order:
// storage, events, external clients, the search pipeline, job lifecycle and
// finally the HTTP handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	// Storage first; nearly everything else hangs off it.
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager
	kvStorage := storageManager.KVStorage()

	a.EventService = events.NewService(logger)

	a.LLMService = llm.NewService(config, kvStorage, logger)
	a.PlacesService = places.NewService(&config.PlacesAPI, kvStorage, logger)
	a.CacheService = cache.NewService(&config.Cache, kvStorage, logger)

	// Enrichment is optional; the pipeline treats a nil service as disabled.
	var enrichService interfaces.EnrichService
	if config.Enrichment.Enabled {
		a.EnrichService, err = enrich.NewService(config, a.PlacesService, storageManager.DetailsStorage(), a.CacheService, logger)
		if err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to initialize enrichment: %w", err)
		}
		enrichService = a.EnrichService
	} else {
		logger.Info().Msg("Background enrichment disabled by config")
	}

	a.Pipeline = pipeline.NewService(config, a.LLMService, a.PlacesService, a.CacheService, enrichService, logger)
	a.JobService = jobsvc.NewService(config, a.Pipeline, a.EventService, logger)

	a.Sweeper = jobsvc.NewSweeper(config.Jobs.SweepSchedule, a.JobService, logger).
		WithStorageGC(storageManager.DetailsStorage())
	if err := a.Sweeper.Start(); err != nil {
		a.teardown()
		return nil, fmt.Errorf("failed to start job sweeper: %w", err)
	}

	// HTTP handlers
	a.APIHandler = handlers.NewAPIHandler()
	a.SearchHandler = handlers.NewSearchHandler(a.JobService, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.JobService, storageManager.DetailsStorage(), a.LLMService, logger)
	a.ConfigHandler = handlers.NewConfigHandler(logger, config)
	a.LogsHandler = handlers.NewLogsHandler(logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger, &config.WebSocket)

	logger.Info().
		Str("llm_provider", a.LLMService.ProviderName()).
		Bool("enrichment", config.Enrichment.Enabled).
		Msg("Application initialized")

	return a, nil
}

// Close shuts down services in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")
	a.teardown()
	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}

func (a *App) teardown() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.EnrichService != nil {
		if err := a.EnrichService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close enrichment service")
		}
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
