package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrouter_backend/internal/adapters/sheets"
	"leadrouter_backend/internal/allocation"
	allocrepo "leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/notification"
	"leadrouter_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var sink sheets.Sink = sheets.NoopSink{}
	if cfg.IsSheetSinkEnabled() {
		sink = sheets.NewHTTPSink(cfg.SheetSinkURL, cfg.SheetSinkToken, log)
	}

	// The worker never receives leads directly; it replays sink pushes and
	// sends notifications, so there is no retry scheduler to wire.
	allocationModule := allocation.NewModule(pool, sink, nil, eventBus, log)

	var sender notification.Sender = notification.NoopSender{}
	if cfg.EmailEnabled {
		sender = notification.NewSMTPSender(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
			cfg.EmailFromAddress, cfg.EmailFromName,
		)
	} else {
		log.Warn("email sending disabled; batch completed notifications will be dropped")
	}
	notifier := notification.NewService(allocrepo.New(pool), sender, log)

	worker, err := scheduler.NewWorker(cfg, allocationModule.Service(), notifier, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker running")
	worker.Run(ctx)
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
