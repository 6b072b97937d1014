package notification

import (
	"context"

	allocrepo "leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/scheduler"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// Service sends the quota-complete notification. The API process only
// enqueues; the worker process calls NotifyBatchCompleted.
type Service struct {
	store  allocrepo.Store
	sender Sender
	log    *logger.Logger
}

// NewService creates the notification service.
func NewService(store allocrepo.Store, sender Sender, log *logger.Logger) *Service {
	return &Service{store: store, sender: sender, log: log}
}

// NotifyBatchCompleted emails the batch's customer that their quota is full.
// A customer without an email address is logged and skipped, not an error.
func (s *Service) NotifyBatchCompleted(ctx context.Context, payload scheduler.BatchQuotaCompletedPayload) error {
	email := BatchCompletedEmail{
		Category:      payload.Category,
		TotalCapacity: payload.TotalCapacity,
	}

	// The payload carries enough to send, but the batch row has the customer
	// contact details.
	if batchID, err := uuid.Parse(payload.BatchID); err == nil {
		batch, err := s.store.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		email.CustomerName = batch.CustomerName
		email.CustomerEmail = batch.CustomerEmail
	}

	if email.CustomerEmail == "" {
		s.log.Info("batch completed but customer has no email address", "batchId", payload.BatchID)
		return nil
	}

	if err := s.sender.SendBatchCompleted(ctx, email); err != nil {
		s.log.Error("failed to send batch completed email",
			"error", err, "batchId", payload.BatchID, "customer", email.CustomerName)
		return err
	}

	s.log.Info("batch completed email sent", "batchId", payload.BatchID, "customer", email.CustomerName)
	return nil
}

// Subscribe wires the BatchCompleted event to the task queue. Runs in the API
// process; the actual send happens in the worker.
func Subscribe(bus events.Bus, client *scheduler.Client, log *logger.Logger) {
	bus.Subscribe(events.BatchCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.BatchCompleted)
		if !ok {
			return nil
		}

		err := client.EnqueueBatchQuotaCompleted(ctx, scheduler.BatchQuotaCompletedPayload{
			BatchID:       e.BatchID.String(),
			CustomerID:    e.CustomerID.String(),
			Category:      e.Category,
			TotalCapacity: e.TotalCapacity,
		})
		if err != nil {
			log.Error("failed to enqueue batch completed notification", "error", err, "batchId", e.BatchID)
		}
		return err
	}))
}
