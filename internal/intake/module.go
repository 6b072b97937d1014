// Package intake provides the lead intake bounded context module.
package intake

import (
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/internal/intake/handler"
	"leadrouter_backend/internal/intake/repository"
	"leadrouter_backend/internal/intake/service"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the intake bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	repo    *repository.Repository
	log     *logger.Logger
}

// NewModule creates and initializes the intake module.
func NewModule(pool *pgxpool.Pool, resolver *geo.Resolver, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, resolver, eventBus, log)
	return &Module{service: svc, repo: repo, log: log}
}

// Service exposes the intake service for in-process callers (the webhook
// pipeline submits through it).
func (m *Module) Service() *service.Service { return m.service }

// Repository exposes the lead store for in-process callers.
func (m *Module) Repository() *repository.Repository { return m.repo }

// Name returns the module identifier.
func (m *Module) Name() string { return "intake" }

// RegisterRoutes mounts the intake routes on the public API group.
// The submit endpoint is rate limited per IP; it is the one route open to
// the whole internet.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	h := handler.New(m.service, validator.New(), ctx.RateLimiter.RateLimit())
	h.RegisterRoutes(ctx.V1.Group("/intake"))
}
