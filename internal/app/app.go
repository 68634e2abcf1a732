// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/melodia/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/melodia/internal/adapter/audio/stream"
	"github.com/tejashwikalptaru/melodia/internal/adapter/catalog/rest"
	"github.com/tejashwikalptaru/melodia/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/melodia/internal/adapter/repository/memory"
	fyneui "github.com/tejashwikalptaru/melodia/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/melodia/internal/config"
	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/logger"
	"github.com/tejashwikalptaru/melodia/internal/metrics"
	"github.com/tejashwikalptaru/melodia/internal/ports"
	"github.com/tejashwikalptaru/melodia/internal/service"
)

// AppID is the Fyne application identifier.
const AppID = "com.melodia.player"

// CatalogBackend is everything the app needs from a content source.
type CatalogBackend interface {
	ports.Catalog
	ports.CatalogBrowser
	ports.PlayRegistrar
}

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for the command line
type Application struct {
	// Core dependencies
	cfg       config.Config
	logger    *slog.Logger
	sessionID string
	fyneApp   fyne.App

	// Infrastructure
	eventBus    *eventbus.SyncEventBus
	metrics     *metrics.Metrics
	audioEngine ports.AudioEngine
	catalog     CatalogBackend
	playCounts  *memory.PlayCountRepository

	// Services
	playCountService *service.PlayCountService
	sessionService   *service.SessionService
	transportService *service.TransportService

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	// Background work (metrics endpoint)
	group  *errgroup.Group
	cancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// Options holds wiring overrides for tests.
type Options struct {
	// FyneApp allows injecting a test Fyne app (nil for production)
	FyneApp fyne.App

	// Catalog replaces the configured content source
	Catalog CatalogBackend

	// AudioEngine replaces the configured engine. It must not be initialized yet.
	AudioEngine ports.AudioEngine
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg config.Config, opts Options) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{cfg: cfg, sessionID: uuid.NewString()}

	// Step 1: Logger, tagged with the session id for correlation
	app.logger = logger.NewLogger(cfg.Logger()).With(slog.String("session_id", app.sessionID))
	version := GetVersionInfo()
	app.logger.Info("initializing application",
		slog.String("version", version.FullString()),
		slog.Bool("demo", cfg.Demo),
		slog.Bool("mock_audio", cfg.MockAudio))

	// Step 2: Fyne application
	if opts.FyneApp != nil {
		app.fyneApp = opts.FyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(AppID)
	}

	// Step 3: Metrics and the event bus
	app.metrics = metrics.New()
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus.SetPanicHook(func(eventType domain.EventType, _ any) {
		app.metrics.HandlerPanicked(eventType)
	})

	// Step 4: Audio engine
	engine, err := app.newAudioEngine(opts.AudioEngine)
	if err != nil {
		return nil, err
	}
	app.audioEngine = engine

	// Step 5: Catalog and local play counters
	app.catalog = opts.Catalog
	if app.catalog == nil {
		app.catalog = app.newCatalog()
	}
	app.playCounts, err = memory.NewPlayCountRepository(cfg.PlayCountCacheSize)
	if err != nil {
		_ = app.audioEngine.Shutdown()
		return nil, fmt.Errorf("failed to create play count cache: %w", err)
	}

	// Step 6: Services
	app.playCountService = service.NewPlayCountService(
		app.catalog,
		app.playCounts,
		app.eventBus,
		app.metrics,
		app.logger.With(slog.String("service", "playcount")),
	)
	app.playCountService.SetTimeout(cfg.HTTPTimeout)

	app.sessionService = service.NewSessionService(
		app.logger.With(slog.String("service", "session")),
		service.NewResolver(app.catalog, app.logger.With(slog.String("service", "resolver"))),
		service.NewNavigator(nil),
		app.playCountService,
		app.eventBus,
		app.metrics,
	)
	app.sessionService.SetResolveTimeout(cfg.HTTPTimeout)

	app.transportService = service.NewTransportService(
		app.logger.With(slog.String("service", "transport")),
		app.audioEngine,
		app.eventBus,
		app.metrics,
		service.TransportConfig{
			UpdateInterval: cfg.ProgressInterval,
			Volume:         cfg.Volume,
		},
	)

	// Step 7: UI
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.logger.With(slog.String("component", "ui")), version.Label())
	app.presenter = fyneui.NewPresenter(
		app.logger.With(slog.String("component", "presenter")),
		app.eventBus,
		app.sessionService,
		app.transportService,
		app.catalog,
		app.catalog,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	return app, nil
}

func (a *Application) newAudioEngine(override ports.AudioEngine) (ports.AudioEngine, error) {
	engine := override
	switch {
	case engine != nil:
	case a.cfg.MockAudio:
		m := mock.NewEngine()
		m.SetLogger(a.logger.With(slog.String("engine", "mock")))
		engine = m
	default:
		engine = stream.NewEngine(
			a.logger.With(slog.String("engine", "stream")),
			&http.Client{Timeout: stream.DownloadTimeout},
		)
	}

	if err := engine.Initialize(a.cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("failed to initialize audio engine: %w", err)
	}
	return engine, nil
}

func (a *Application) newCatalog() CatalogBackend {
	if a.cfg.Demo {
		a.logger.Info("using the built-in demo catalog")
		return memory.NewDemoCatalog(a.cfg.FilesURL)
	}
	return rest.NewClient(rest.Config{
		BaseURL:   a.cfg.CatalogURL,
		FilesURL:  a.cfg.FilesURL,
		AuthToken: a.cfg.AuthToken,
		Timeout:   a.cfg.HTTPTimeout,
	}, a.logger.With(slog.String("component", "catalog")))
}

// Start launches background work: the metrics endpoint when configured.
// Calling it again does nothing.
func (a *Application) Start() {
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	var group *errgroup.Group
	group, ctx = errgroup.WithContext(ctx)
	a.group = group

	if a.cfg.MetricsAddr != "" {
		log := a.logger.With(slog.String("component", "metrics"))
		group.Go(func() error {
			err := a.metrics.Serve(ctx, a.cfg.MetricsAddr, log)
			if err != nil {
				log.Error("metrics endpoint stopped",
					slog.String("addr", a.cfg.MetricsAddr),
					slog.String("error", err.Error()))
			}
			return err
		})
	}
}

// Run starts the application and blocks until the window is closed.
func (a *Application) Run() error {
	a.Start()
	a.logger.Info("Melodia started")

	a.mainWindow.ShowAndRun()
	return nil
}

// Quit closes the window from any goroutine, which makes Run return.
func (a *Application) Quit() {
	a.logger.Info("quit requested")
	fyne.Do(a.mainWindow.Close)
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times (idempotent).
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down application")
	var errs []error

	if a.presenter != nil {
		a.presenter.Shutdown()
	}

	// Shutdown services (in reverse order of creation)
	if a.transportService != nil {
		if err := a.transportService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("transport: %w", err))
		}
	}
	if a.sessionService != nil {
		if err := a.sessionService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("session: %w", err))
		}
	}
	if a.playCountService != nil {
		if err := a.playCountService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("play counts: %w", err))
		}
	}

	if a.audioEngine != nil && a.audioEngine.IsInitialized() {
		if err := a.audioEngine.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("audio engine: %w", err))
		}
	}

	if a.cancel != nil {
		a.cancel()
		if err := a.group.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("metrics endpoint: %w", err))
		}
	}

	if err := a.eventBus.Close(); err != nil && !errors.Is(err, eventbus.ErrClosed) {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn("shutdown finished with errors", slog.Any("error", err))
	} else {
		a.logger.Info("application shutdown complete")
	}
	return err
}

// SessionID returns the id attached to every log line of this run.
func (a *Application) SessionID() string {
	return a.sessionID
}

// Presenter returns the UI presenter.
func (a *Application) Presenter() *fyneui.Presenter {
	return a.presenter
}

// MainWindow returns the main window.
func (a *Application) MainWindow() *fyneui.MainWindow {
	return a.mainWindow
}

// Session returns the playback session controller.
func (a *Application) Session() *service.SessionService {
	return a.sessionService
}

// Transport returns the audio transport.
func (a *Application) Transport() *service.TransportService {
	return a.transportService
}

// Metrics returns the application's metrics registry.
func (a *Application) Metrics() *metrics.Metrics {
	return a.metrics
}

// PlayCounts returns the play count service.
func (a *Application) PlayCounts() *service.PlayCountService {
	return a.playCountService
}
