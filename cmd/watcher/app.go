// File: cmd/watcher/app.go
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/balance"
	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/command"
	"github.com/smartdevs17/multichain-watcher/internal/config"
	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/monitor"
	"github.com/smartdevs17/multichain-watcher/internal/notification"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/internal/server"
	"github.com/smartdevs17/multichain-watcher/internal/storage"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Application owns every process-scoped component
type Application struct {
	config     *config.Config
	logger     *logrus.Entry
	metrics    *metrics.Manager
	store      storage.AddressStore
	registry   *registry.Registry
	chains     *chain.Set
	balances   *balance.Service
	commands   *command.Handler
	dispatcher *notification.Dispatcher
	monitor    *monitor.ChainMonitor
	poller     *command.TelegramPoller
	server     *server.HTTPServer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// initializeLogger applies the logging section; safe to call before any component exists
func initializeLogger(cfg *config.Config) error {
	logCfg := cfg.Logging
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to initialize logger", err)
	}
	return nil
}

// NewApplication builds the full component graph without starting anything
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	appCtx, cancel := context.WithCancel(ctx)
	app := &Application{
		config: cfg,
		logger: utils.ComponentLogger("app"),
		ctx:    appCtx,
		cancel: cancel,
	}

	if err := app.initializeComponents(); err != nil {
		if app.dispatcher != nil {
			app.dispatcher.Stop()
		}
		app.close()
		cancel()
		return nil, err
	}
	return app, nil
}

func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")
	app.metrics = metrics.NewManager(metrics.Default())

	if err := app.initializeStorage(); err != nil {
		return err
	}
	if err := app.initializeChains(); err != nil {
		return err
	}
	if err := app.initializeNotification(); err != nil {
		return err
	}

	app.balances = balance.NewService(app.chains, app.metrics.GetPrometheusMetrics())
	app.commands = command.NewHandler(app.config.ChainConfigs(), app.registry, app.balances)

	app.initializeMonitor()
	if err := app.initializeTelegramCommands(); err != nil {
		return err
	}
	app.initializeServer()

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage opens the address store and loads every scope into the registry
func (app *Application) initializeStorage() error {
	pm := app.metrics.GetPrometheusMetrics()
	store, err := openStore(app.ctx, &app.config.Storage, pm)
	if err != nil {
		return err
	}
	app.store = store

	app.registry = registry.New(store, pm)
	if err := app.registry.Load(app.ctx); err != nil {
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to load tracked addresses", err)
	}
	return nil
}

// openStore connects and migrates the configured backend
func openStore(ctx context.Context, cfg *config.StorageConfig, pm *metrics.PrometheusMetrics) (storage.AddressStore, error) {
	backend, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Connect(ctx); err != nil {
		return nil, utils.WrapError(utils.ErrCodeStartupConfig, "Failed to connect to storage", err)
	}
	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		return nil, utils.WrapError(utils.ErrCodeStartupConfig, "Failed to run storage migrations", err)
	}
	return storage.NewStorageWithMetrics(backend, pm, cfg.OperationTimeout), nil
}

func chainOptions(cfg *config.Config, pm *metrics.PrometheusMetrics) chain.Options {
	return chain.Options{
		RequestTimeout: cfg.Chains.RequestTimeout,
		RateLimit:      cfg.Chains.RateLimit,
		RateBurst:      cfg.Chains.RateBurst,
		Metrics:        pm,
	}
}

func (app *Application) initializeChains() error {
	set, err := chain.NewSet(app.config.ChainConfigs(), chainOptions(app.config, app.metrics.GetPrometheusMetrics()))
	if err != nil {
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to create chain adapters", err)
	}
	app.chains = set

	for _, a := range set.All() {
		app.logger.WithFields(logrus.Fields{
			"chain":  a.ChainID(),
			"family": a.Family(),
		}).Info("Chain configured")
	}
	return nil
}

func (app *Application) initializeNotification() error {
	ncfg := app.config.Notifications
	var sinks []notification.Sink
	if ncfg.Enabled {
		var err error
		if sinks, err = notification.NewSinks(ncfg); err != nil {
			return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to create notification sinks", err)
		}
	}
	app.dispatcher = notification.NewDispatcher(notification.DispatcherConfig{
		QueueSize:   ncfg.QueueSize,
		SendTimeout: ncfg.Timeout,
	}, sinks, app.metrics.GetPrometheusMetrics())
	return nil
}

func (app *Application) initializeMonitor() {
	mcfg := app.config.Monitor
	app.monitor = monitor.NewChainMonitor(app.chains.Scannable(), app.registry, app.dispatcher, monitor.ScannerConfig{
		PollInterval:       mcfg.PollInterval,
		BatchSize:          mcfg.BatchSize,
		RetryDelay:         mcfg.RetryDelay,
		MaxBackoff:         mcfg.MaxBackoff,
		ConfirmationBlocks: mcfg.ConfirmationBlocks,
	}, app.metrics.GetPrometheusMetrics())
}

func (app *Application) initializeTelegramCommands() error {
	tcfg := app.config.Notifications.Telegram
	if !tcfg.Commands {
		return nil
	}
	poller, err := command.NewTelegramPoller(command.TelegramPollerConfig{
		APIURL:      tcfg.APIURL,
		Token:       tcfg.Token,
		AllowedChat: tcfg.ChatID,
		PollTimeout: tcfg.PollTimeout,
		RetryDelay:  app.config.Monitor.RetryDelay,
	}, app.commands)
	if err != nil {
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to create telegram command poller", err)
	}
	app.poller = poller
	return nil
}

func (app *Application) initializeServer() {
	if !app.config.Server.Enabled {
		return
	}
	scfg := app.config.Server
	app.server = server.NewHTTPServer(&server.ServerConfig{
		Port:          scfg.Port,
		Host:          scfg.Host,
		ReadTimeout:   scfg.ReadTimeout,
		WriteTimeout:  scfg.WriteTimeout,
		EnableMetrics: scfg.EnableMetrics,
		EnableHealth:  scfg.EnableHealth,
		Version:       AppVersion,
	}, server.Dependencies{
		Chains:     app.config.ChainConfigs(),
		Commands:   app.commands,
		Addresses:  app.registry,
		Monitor:    app.monitor,
		Dispatcher: app.dispatcher,
		Store:      app.store,
		Metrics:    app.metrics,
	})
}

// Start starts the dispatcher, then the scan loops, then the front ends
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting multichain watcher")

	if err := app.dispatcher.Start(); err != nil {
		return err
	}

	if app.config.Monitor.Enabled {
		if err := app.monitor.Start(app.ctx); err != nil {
			return err
		}
	}

	if app.server != nil {
		if err := app.server.Start(); err != nil {
			return err
		}
	}

	app.goRun(func() { app.metrics.Run(app.ctx, 15*time.Second) })
	if app.poller != nil {
		app.goRun(func() { app.poller.Run(app.ctx) })
	}

	app.logger.WithFields(logrus.Fields{
		"chains":   len(app.chains.All()),
		"scanning": len(app.chains.Scannable()),
		"server":   fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
	}).Info("Multichain watcher started")
	return nil
}

func (app *Application) goRun(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

// Stop shuts down in dependency order: front ends and scan loops first, then the
// dispatcher drains, then stores and connections close.
func (app *Application) Stop() error {
	app.logger.Info("Stopping multichain watcher")
	app.cancel()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}
	if err := app.monitor.Stop(); err != nil {
		app.logger.WithError(err).Error("Failed to stop chain monitor")
	}
	app.wg.Wait()

	if err := app.dispatcher.Stop(); err != nil {
		app.logger.WithError(err).Error("Failed to stop dispatcher")
	}
	app.close()

	app.logger.Info("Multichain watcher stopped")
	return nil
}

func (app *Application) close() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}
	if app.chains != nil {
		app.chains.Close()
	}
}
