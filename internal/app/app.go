package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/handlers"
	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/itinerary"
	"github.com/routewise/routewise/internal/services/drafts"
	"github.com/routewise/routewise/internal/services/events"
	"github.com/routewise/routewise/internal/services/export"
	"github.com/routewise/routewise/internal/services/kv"
	"github.com/routewise/routewise/internal/services/places"
	"github.com/routewise/routewise/internal/services/scheduler"
	"github.com/routewise/routewise/internal/services/trips"
	"github.com/routewise/routewise/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Itinerary state store (day-partitioned trip state)
	Itinerary *itinerary.Store

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// Domain services
	DraftService  interfaces.DraftService
	PlaceService  interfaces.PlaceService
	TripService   interfaces.TripService
	ExportService interfaces.ExportService

	// Key/value settings service
	KVService *kv.Service

	// Log fan-out from arbor's context channel to websocket clients
	LogBroadcaster *handlers.LogBroadcaster

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	ItineraryHandler *handlers.ItineraryHandler
	PlacesHandler    *handlers.PlacesHandler
	TripsHandler     *handlers.TripsHandler
	DraftsHandler    *handlers.DraftsHandler
	KVHandler        *handlers.KVHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Event service and websocket handler are created first so every other
	// service can publish toward connected clients
	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}
	app.WSHandler = handlers.NewWebSocketHandler(app.Logger)

	// Route arbor's context channel into the websocket log stream
	app.LogBroadcaster = handlers.NewLogBroadcaster(app.WSHandler, &cfg.WebSocket)
	app.LogBroadcaster.Start()
	app.Logger.SetChannel("context", app.LogBroadcaster.Channel())

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Start WebSocket background tasks for real-time UI updates
	app.WSHandler.StartStatusBroadcaster()

	logger.Info().
		Str("environment", cfg.Environment).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Seed the key/value store from settings files, then .env. The env file
	// wins, so API keys can live outside version-controlled settings.
	ctx := context.Background()
	if err := a.StorageManager.LoadSettingsFromFiles(ctx, a.Config.Storage.SettingsDir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load settings from files")
	}
	if err := a.StorageManager.LoadEnvFile(ctx, ".env"); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Resolve {key-name} references in the config now that the store is
	// seeded, so routewise.toml can point at stored secrets instead of
	// embedding them
	pairs, err := a.StorageManager.KVStorage().List(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(pairs) > 0 {
		kvMap := make(map[string]string, len(pairs))
		for _, pair := range pairs {
			kvMap[pair.Key] = pair.Value
		}
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to apply key/value replacements to config")
		} else {
			a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
		}
	}

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// Itinerary store over its persistence hook. A corrupt or missing
	// stored state falls back to the default single-day itinerary, so a
	// load failure is a warning, not a startup error.
	a.Itinerary = itinerary.NewStore(
		a.StorageManager.ItineraryStorage(),
		a.EventService,
		a.Config.Itinerary.DefaultScheduledTime,
		a.Logger,
	)
	if err := a.Itinerary.Load(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load itinerary state")
	}
	a.Logger.Debug().Msg("Itinerary store initialized")

	// Draft service (expiring trip-wizard drafts)
	a.DraftService = drafts.NewService(
		a.StorageManager.DraftStorage(),
		a.EventService,
		&a.Config.Drafts,
		a.Logger,
	)
	a.Logger.Debug().Msg("Draft service initialized")

	// Place service for the bookmarked trip-place collection
	placeService := places.NewService(
		a.StorageManager.PlaceStorage(),
		a.StorageManager.KVStorage(),
		a.EventService,
		&a.Config.Places,
		a.Logger,
	)
	a.PlaceService = placeService
	if len(a.Config.Places.SeedFiles) > 0 {
		added, err := placeService.SeedFromFiles(context.Background(), a.Config.Places.SeedFiles)
		if err != nil {
			// Log warning but don't fail startup (consistent with other loaders)
			a.Logger.Warn().Err(err).Msg("Failed to seed places from files")
		} else if added > 0 {
			a.Logger.Debug().Int("places", added).Msg("Seeded place collection from files")
		}
	}
	a.Logger.Debug().Msg("Place service initialized")

	// Trip service for saved trips
	a.TripService = trips.NewService(
		a.StorageManager.TripStorage(),
		a.StorageManager.KVStorage(),
		a.EventService,
		a.Logger,
	)
	a.Logger.Debug().Msg("Trip service initialized")

	// Export service (HTML and PDF rendering)
	a.ExportService = export.NewService(&a.Config.Export, a.Logger)
	a.Logger.Debug().Msg("Export service initialized")

	// Key/value settings service
	a.KVService = kv.NewService(a.StorageManager.KVStorage(), a.Logger)
	a.Logger.Debug().Msg("KV service initialized")

	// Scheduler for background maintenance
	if a.Config.Scheduler.Enabled {
		if err := a.initScheduler(); err != nil {
			return err
		}
	} else {
		a.Logger.Debug().Msg("Scheduler disabled by configuration")
	}

	return nil
}

// initScheduler registers and starts the background maintenance jobs
func (a *App) initScheduler() error {
	schedulerService := scheduler.NewService(a.Logger)

	err := schedulerService.RegisterJob("draft-sweep", a.Config.Scheduler.DraftSweepSchedule, func() error {
		swept, err := a.DraftService.SweepExpired(context.Background())
		if err != nil {
			return err
		}
		if swept > 0 {
			a.Logger.Info().Int("count", swept).Msg("Swept expired drafts")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register draft sweep job: %w", err)
	}

	err = schedulerService.RegisterJob("badger-gc", a.Config.Scheduler.GCSchedule, func() error {
		return a.StorageManager.RunGC(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register badger GC job: %w", err)
	}

	if err := schedulerService.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start scheduler service")
	} else {
		a.Logger.Debug().
			Str("draft_sweep", a.Config.Scheduler.DraftSweepSchedule).
			Str("badger_gc", a.Config.Scheduler.GCSchedule).
			Msg("Scheduler service started")
	}
	a.SchedulerService = schedulerService

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	// WSHandler already initialized in New() before the log broadcaster

	// EventSubscriber forwards bus events to websocket clients with
	// config-driven whitelisting and throttling
	_ = handlers.NewEventSubscriber(a.WSHandler, a.EventService, a.Logger, &a.Config.WebSocket)
	a.Logger.Debug().
		Int("allowed_events", len(a.Config.WebSocket.AllowedEvents)).
		Int("throttle_intervals", len(a.Config.WebSocket.ThrottleIntervals)).
		Msg("EventSubscriber initialized")

	a.ItineraryHandler = handlers.NewItineraryHandler(a.Itinerary, a.PlaceService, a.ExportService, a.Logger)
	a.PlacesHandler = handlers.NewPlacesHandler(a.PlaceService, a.Logger)
	a.TripsHandler = handlers.NewTripsHandler(a.TripService, a.EventService, a.Config.Server.APIToken, a.Logger)
	a.DraftsHandler = handlers.NewDraftsHandler(a.DraftService, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.KVService, a.Logger)
	a.Logger.Debug().Msg("HTTP handlers initialized")

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduler service before touching storage; running jobs hold
	// storage references
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Stop the websocket log fan-out. Logs emitted after this point still
	// reach the console and file writers.
	if a.LogBroadcaster != nil {
		a.LogBroadcaster.Stop()
		// Allow in-flight broadcasts to finish gracefully
		time.Sleep(100 * time.Millisecond)
	}

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
