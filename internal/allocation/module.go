// Package allocation provides the lead allocation bounded context module.
// This file defines the module that encapsulates setup and route registration.
package allocation

import (
	"context"

	"leadrouter_backend/internal/adapters/sheets"
	"leadrouter_backend/internal/allocation/handler"
	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/allocation/service"
	"leadrouter_backend/internal/events"
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the allocation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   repository.Store
}

// NewModule creates and initializes the allocation module.
// It subscribes to LeadReceived so every intake kicks off an allocation pass
// on its own goroutine.
func NewModule(pool *pgxpool.Pool, sink sheets.Sink, retries service.SinkRetryScheduler, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	ranker := service.NewRanker(repo, log)
	executor := service.NewExecutor(repo, sink, retries, eventBus, log)
	svc := service.NewService(repo, ranker, executor, log)

	eventBus.Subscribe(events.LeadReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadReceived)
		if !ok {
			return nil
		}

		// The bus dispatches async, so each lead's pass already has its
		// own goroutine.
		if _, err := svc.Run(ctx, e.LeadID); err != nil {
			log.Error("allocation pass failed", "error", err, "leadId", e.LeadID)
		}
		return nil
	}))

	h := handler.New(svc)
	return &Module{handler: h, service: svc, store: repo}
}

// Service exposes the allocation service for other composition-root consumers
// (the background worker reuses it for sink retries).
func (m *Module) Service() *service.Service { return m.service }

// Store exposes the batch/distribution store for in-process consumers (the
// webhook pipeline reads campaign batches through it).
func (m *Module) Store() repository.Store { return m.store }

// Name returns the module identifier.
func (m *Module) Name() string { return "allocation" }

// RegisterRoutes mounts the allocation routes on the API group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/allocation"))
}
