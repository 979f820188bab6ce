package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fxseries/internal/adapters"
	"fxseries/internal/adapters/cache"
	"fxseries/internal/adapters/csvstore"
	"fxseries/internal/adapters/nbp"
	"fxseries/internal/adapters/postgres"
	"fxseries/internal/api"
	"fxseries/internal/config"
	"fxseries/internal/domain"
	"fxseries/internal/interactive"
	"fxseries/internal/logging"
	"fxseries/internal/platform/db"
	httpserver "fxseries/internal/platform/http"
	"fxseries/internal/rate"
	"fxseries/internal/rate/handler"

	"github.com/sirupsen/logrus"
)

const startupTimeout = 10 * time.Second

// App holds the wired pipeline components shared by every run mode.
type App struct {
	Config    *config.AppConfig
	Logger    *logrus.Logger
	Service   *rate.Service
	Validator *rate.PairValidator
	Window    rate.Window

	closers []func()
}

// Bootstrap loads configuration from configPath, sets up logging and wires the components.
func Bootstrap(ctx context.Context, configPath string) (*App, error) {
	appCfg, err := config.Init(configPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(appCfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Config initialization successful")

	a, err := New(ctx, appCfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize application")
		_ = closeLog()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = closeLog() })
	return a, nil
}

// New wires source, store, validator and service from appCfg.
func New(ctx context.Context, appCfg *config.AppConfig, logger *logrus.Logger) (*App, error) {
	a := &App{Config: appCfg, Logger: logger}

	pairs, err := appCfg.ParsedPairs()
	if err != nil {
		return nil, err
	}
	derived := appCfg.DerivedColumns()

	location, err := appCfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	a.Window = rate.Window{LookbackDays: appCfg.RateAPI.LookbackDays, Location: location}

	// Rate source
	source, err := a.newSource()
	if err != nil {
		a.Close()
		return nil, err
	}

	// Dataset store
	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Services
	a.Validator = rate.NewValidator(supportedPairs(pairs, derived), nbp.MaxRangeDays)
	a.Service = rate.NewService(source, store, a.Validator, rate.ServiceConfig{
		Pairs:        pairs,
		Derived:      derived,
		Location:     appCfg.Storage.Location,
		FetchWorkers: appCfg.RateAPI.FetchWorkers,
	}, logging.Component(logger, "pipeline"))
	return a, nil
}

func (a *App) newSource() (adapters.RateSource, error) {
	apiCfg := a.Config.RateAPI
	baseHTTPClient := &http.Client{Timeout: apiCfg.Timeout()}
	var source adapters.RateSource = nbp.NewClient(
		baseHTTPClient,
		strings.TrimSuffix(apiCfg.BaseURL, "/"),
		apiCfg.DomesticCurrency,
		apiCfg.Timeout(),
	)
	if !a.Config.Cache.Enabled() {
		return source, nil
	}

	cached, err := cache.NewCachingSource(source, a.Config.Cache.MaxItems, a.Config.Cache.TTL())
	if err != nil {
		return nil, fmt.Errorf("failed to create series cache: %w", err)
	}
	a.closers = append(a.closers, cached.Close)
	a.Logger.Info("✅ Series cache enabled")
	return cached, nil
}

func (a *App) newStore(ctx context.Context) (adapters.DatasetStore, error) {
	if a.Config.Storage.Backend != config.BackendPostgres {
		return csvstore.NewStore(logging.Component(a.Logger, "csvstore")), nil
	}

	// Bounded context for startup operations (DB connect, migrations)
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := db.CreatePoolAndPing(startupCtx, a.Config.DbServer)
	if err != nil {
		a.Logger.WithError(err).Error("Error connecting to db")
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.Logger.Info("✅ Postgres connection successful")

	if err = db.Migrate(startupCtx, pool); err != nil {
		a.Logger.WithError(err).Error("Failed to apply migrations")
		return nil, err
	}
	a.Logger.Info("✅ Migrations applied")
	return postgres.NewDatasetRepository(pool, logging.Component(a.Logger, "postgres")), nil
}

// RunDaemon starts the daily scheduler and, when enabled, the HTTP API, and blocks until
// ctx is canceled.
func (a *App) RunDaemon(ctx context.Context) error {
	hour, minute, err := a.Config.Scheduler.Clock()
	if err != nil {
		return err
	}

	schedLogger := logging.Component(a.Logger, "scheduler")
	task := func(ctx context.Context, execID string) error {
		return rate.UpdateDataset(ctx, execID, a.Service, a.Window, schedLogger)
	}
	scheduler := rate.NewScheduler(task, rate.TimeOfDay{Hour: hour, Minute: minute}, a.Window.Location, schedLogger)
	// Ensure scheduler stops before the store closes
	defer func() {
		if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
			a.Logger.Errorf("Scheduler shutdown error: %v", shutDownErr)
		}
	}()
	if startErr := scheduler.Start(ctx); startErr != nil {
		a.Logger.WithError(startErr).Error("Failed to start scheduler")
		return startErr
	}
	if next, ok := scheduler.NextRun(); ok {
		a.Logger.WithField("next_run", next.Format(time.RFC3339)).Info("✅ Scheduler activation successful")
	}

	if !a.Config.HTTPServer.Enabled {
		<-ctx.Done()
		return nil
	}

	// Handlers and router
	httpLogger := logging.Component(a.Logger, "http")
	rateHandler := handler.NewRateHandler(a.Validator, a.Service, a.Window, httpLogger)
	router := api.NewRouter(rateHandler)

	a.Logger.Info("Starting http server")
	if serverErr := httpserver.Start(ctx, a.Config.HTTPServer, router, httpLogger); serverErr != nil {
		a.Logger.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

// NewSession builds a manual run reading operator choices from input and printing to out.
func (a *App) NewSession(input interactive.InputPort, out io.Writer) *interactive.Session {
	return interactive.NewSession(
		input,
		a.Service,
		out,
		a.Window,
		a.Config.Storage.ExportLocation,
		logging.Component(a.Logger, "session"),
	)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// supportedPairs is the allow-list of user-facing pairs: the fetched pairs and every
// derived column named like a pair.
func supportedPairs(pairs []domain.Pair, derived []domain.DerivedColumn) []domain.Pair {
	out := append([]domain.Pair(nil), pairs...)
	for _, d := range derived {
		if p, err := domain.ParsePair(d.Name); err == nil {
			out = append(out, p)
		}
	}
	return out
}
