package webhook

import (
	allocrepo "leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	apphttp "leadrouter_backend/internal/http"
	intakerepo "leadrouter_backend/internal/intake/repository"
	intakeservice "leadrouter_backend/internal/intake/service"
	"leadrouter_backend/internal/qualify"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	repo    *Repository
	service *Service
}

// NewModule creates and initializes the webhook module.
func NewModule(pool *pgxpool.Pool, intake *intakeservice.Service, leads *intakerepo.Repository, batches allocrepo.Store, eventBus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, intake, leads, batches, qualify.NewScorer(nil), eventBus, log)
	return &Module{repo: repo, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the API-key protected webhook routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(APIKeyAuthMiddleware(m.repo))

	NewHandler(m.service, validator.New()).RegisterRoutes(group)
}
