package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrouter_backend/internal/adapters/sheets"
	"leadrouter_backend/internal/allocation"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/internal/http/router"
	"leadrouter_backend/internal/intake"
	"leadrouter_backend/internal/notification"
	"leadrouter_backend/internal/scheduler"
	"leadrouter_backend/internal/webhook"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/db"
	"leadrouter_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	taskClient, closeTaskClient := initTaskClient(cfg, log)
	if closeTaskClient != nil {
		defer closeTaskClient()
	}

	resolver := initResolver(cfg, log)
	sink := initSheetSink(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	intakeModule := intake.NewModule(pool, resolver, eventBus, log)
	allocationModule := allocation.NewModule(pool, sink, taskClient, eventBus, log)
	webhookModule := webhook.NewModule(pool, intakeModule.Service(), intakeModule.Repository(),
		allocationModule.Store(), eventBus, log)

	// Quota-complete notifications are enqueued here, sent by cmd/worker
	notification.Subscribe(eventBus, taskClient, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			intakeModule,
			allocationModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sink retries and notifications disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initResolver(cfg *config.Config, log *logger.Logger) *geo.Resolver {
	var opts []geo.Option

	if cfg.GeoCacheURL != "" {
		cache, err := geo.NewRedisCache(cfg.GeoCacheURL, cfg.GeoCacheTTL)
		if err != nil {
			log.Error("failed to initialize geo cache, continuing without", "error", err)
		} else {
			opts = append(opts, geo.WithCache(cache))
		}
	}

	if cfg.IsNominatimEnabled() {
		opts = append(opts, geo.WithGeocoder(geo.NewNominatimGeocoder(cfg.NominatimURL, log)))
	}

	return geo.NewResolver(log, opts...)
}

func initSheetSink(cfg config.SheetSinkConfig, log *logger.Logger) sheets.Sink {
	if !cfg.IsSheetSinkEnabled() {
		log.Warn("sheet sink not configured; distributions will not be exported")
		return sheets.NoopSink{}
	}
	return sheets.NewHTTPSink(cfg.GetSheetSinkURL(), cfg.GetSheetSinkToken(), log)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
