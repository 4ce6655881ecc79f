package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"summerberry-forecast/api"
	"summerberry-forecast/cache"
	"summerberry-forecast/config"
	"summerberry-forecast/database"
	"summerberry-forecast/forecast"
	"summerberry-forecast/logging"
	"summerberry-forecast/notifications"
	"summerberry-forecast/predictor"
	"summerberry-forecast/realtime"
)

const shutdownTimeout = 10 * time.Second

// App represents the main application
type App struct {
	config *config.Config
	log    *zap.Logger

	db             *database.Database
	repo           *database.Repository
	redis          *cache.RedisClient
	model          *predictor.Adapter
	service        *forecast.Service
	broker         *realtime.Broker
	stats          *cache.ForecastStats
	webhookManager *notifications.WebhookManager
	httpServer     *http.Server
}

// New creates a new application instance
func New(cfg *config.Config, log *zap.Logger) *App {
	return &App{
		config: cfg,
		log:    logging.OrNop(log),
	}
}

// Start wires every component, serves HTTP and blocks until SIGINT/SIGTERM
func (a *App) Start() error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Forecast pipeline (model + optional history store)
	if err := a.initPipeline(ctx); err != nil {
		return err
	}

	// 2. Redis Connection
	if a.config.Redis.Enabled {
		a.log.Info("Connecting to Redis")
		a.redis = cache.NewRedisClient(a.config.Redis, a.log)
		if a.redis == nil {
			a.log.Warn("Redis connection failed, forecast counters stay in memory")
		}
	}

	// 3. Observers
	a.stats = cache.NewForecastStats(a.redis, a.log)
	a.broker = realtime.NewBroker(a.log, a.config.CORSOrigins)
	go a.broker.Run(ctx)
	a.webhookManager = notifications.NewWebhookManager(a.config.WebhookURLs, a.log)

	a.service.AddObserver(a.stats)
	a.service.AddObserver(a.broker)
	if a.webhookManager.Enabled() {
		a.service.AddObserver(a.webhookManager)
		a.log.Info("Forecast webhooks enabled", zap.Int("count", len(a.config.WebhookURLs)))
	}

	// 4. API Server
	apiServer := api.NewServer(a.service, a.model, a.broker, api.Options{
		CORSOrigins:    a.config.CORSOrigins,
		MaxUploadBytes: a.config.MaxUploadBytes(),
	}, a.log)
	apiServer.SetStats(a.stats)
	if a.repo != nil {
		apiServer.SetHealthChecker(a.repo)
		apiServer.SetRecordCounter(a.repo)
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", a.config.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("API server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 5. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown(cancel, serverErr)
}

// initPipeline loads the model, opens the store and builds the forecast service
func (a *App) initPipeline(ctx context.Context) error {
	a.model = predictor.Shared(a.config.ModelPath, a.log)

	var history forecast.HistoryFetcher
	if a.config.Database.Enabled {
		a.log.Info("Connecting to database", zap.String("host", a.config.Database.Host))
		db, err := database.Connect(a.config.Database, a.log)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		a.db = db
		a.repo = database.NewRepository(db)

		if a.config.Database.AutoMigrate {
			if err := a.repo.InitSchema(); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := a.repo.Ping(pingCtx); err != nil {
			a.log.Warn("Historical store unreachable, forecasts continue without history", zap.Error(err))
		}
		cancel()

		history = database.NewHistoryGateway(db, a.config.Database.HistoryLimit, a.config.Database.QueryTimeout, a.log)
	} else {
		a.log.Info("Historical store disabled")
	}

	a.service = forecast.NewService(a.model, history, a.log)
	return nil
}

// Forecaster builds the pipeline without HTTP or observers, for one-shot CLI runs.
// Call Close when done.
func (a *App) Forecaster(ctx context.Context) (*forecast.Service, error) {
	if a.service == nil {
		if err := a.initPipeline(ctx); err != nil {
			return nil, err
		}
	}
	return a.service, nil
}

// Close releases store connections
func (a *App) Close() {
	if a.service != nil {
		a.service.Wait()
	}

	// Close database connection
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Error closing database", zap.Error(err))
		}
	}

	// Close Redis connection
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Error closing redis", zap.Error(err))
		}
	}
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc, serverErr <-chan error) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	var runErr error
	select {
	case <-interrupt:
		a.log.Info("Shutdown signal received, initiating graceful shutdown")
	case err := <-serverErr:
		a.log.Error("API server failed", zap.Error(err))
		runErr = err
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		// Stop the broker first so event streams end and Shutdown can drain
		cancel()

		// Stop accepting requests and drain in-flight forecasts
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("Error shutting down API server", zap.Error(err))
			}
		}

		a.Close()
		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		a.log.Info("Graceful shutdown completed")
		return runErr
	case <-shutdownCtx.Done():
		a.log.Warn("Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
