// Package handler exposes the allocation module's HTTP endpoints.
package handler

import (
	"errors"
	"net/http"

	"leadrouter_backend/internal/allocation/service"
	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/allocation/transport"
	"leadrouter_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles allocation HTTP requests.
type Handler struct {
	svc *service.Service
}

// New creates a new allocation handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the allocation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/run", h.RunPass)
}

// RunPass triggers an allocation pass for a lead. The normal path is the
// LeadReceived event subscription; this endpoint exists for replays and
// operational re-runs.
func (h *Handler) RunPass(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Run(c.Request.Context(), leadID)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toRunResponse(leadID, result))
}

func toRunResponse(leadID uuid.UUID, result service.PassResult) transport.AllocationRunResponse {
	resp := transport.AllocationRunResponse{
		LeadID:        leadID,
		FreshCount:    result.FreshCount,
		ReuseCount:    result.ReuseCount,
		Distributions: make([]transport.DistributionResponse, 0, len(result.Distributions)),
	}
	for _, d := range result.Distributions {
		resp.Distributions = append(resp.Distributions, transport.DistributionResponse{
			ID:            d.ID,
			LeadID:        d.LeadID,
			CustomerID:    d.CustomerID,
			BatchID:       d.BatchID,
			Kind:          string(d.Kind),
			DistanceKm:    d.DistanceKm,
			PriorityScore: d.PriorityScore,
			Reason:        d.Reason,
			SinkStatus:    string(d.SinkStatus),
			CreatedAt:     d.CreatedAt,
		})
	}
	return resp
}
