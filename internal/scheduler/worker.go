package scheduler

import (
	"context"
	"fmt"

	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SinkRetrier re-pushes a distribution row to the sheet sink.
// Satisfied by allocation.Service.
type SinkRetrier interface {
	RetrySink(ctx context.Context, distributionID uuid.UUID) error
}

// QuotaNotifier sends the quota-complete notification.
// Satisfied by notification.Service.
type QuotaNotifier interface {
	NotifyBatchCompleted(ctx context.Context, payload BatchQuotaCompletedPayload) error
}

// Worker consumes background tasks from the asynq queue.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	retrier  SinkRetrier
	notifier QuotaNotifier
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retrier SinkRetrier, notifier QuotaNotifier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		retrier:  retrier,
		notifier: notifier,
		log:      log,
	}

	mux.HandleFunc(TaskSinkRetry, w.handleSinkRetry)
	mux.HandleFunc(TaskBatchQuotaCompleted, w.handleBatchQuotaCompleted)

	return w, nil
}

func (w *Worker) handleSinkRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSinkRetryPayload(task)
	if err != nil {
		return err
	}

	distributionID, err := uuid.Parse(payload.DistributionID)
	if err != nil {
		return err
	}

	return w.retrier.RetrySink(ctx, distributionID)
}

func (w *Worker) handleBatchQuotaCompleted(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBatchQuotaCompletedPayload(task)
	if err != nil {
		return err
	}

	return w.notifier.NotifyBatchCompleted(ctx, payload)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
