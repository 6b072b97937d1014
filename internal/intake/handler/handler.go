// Package handler exposes the intake module's HTTP endpoints.
package handler

import (
	"net/http"

	"leadrouter_backend/internal/intake/repository"
	"leadrouter_backend/internal/intake/service"
	"leadrouter_backend/internal/intake/transport"
	"leadrouter_backend/platform/httpkit"
	"leadrouter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles intake HTTP requests.
type Handler struct {
	svc       *service.Service
	validate  *validator.Validator
	rateLimit gin.HandlerFunc
}

// New creates a new intake handler. rateLimit guards the public submit
// endpoint; pass nil to mount it unguarded (tests).
func New(svc *service.Service, validate *validator.Validator, rateLimit gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, validate: validate, rateLimit: rateLimit}
}

// RegisterRoutes mounts the intake routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	if h.rateLimit != nil {
		rg.POST("/leads", h.rateLimit, h.Submit)
	} else {
		rg.POST("/leads", h.Submit)
	}
	rg.GET("/leads/:id", h.GetLead)
}

// Submit accepts a public lead submission.
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
	}

	status := http.StatusCreated
	if resp.IsResubmission {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, resp)
}

// GetLead returns a lead by id.
func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrLeadNotFound {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
	}

	httpkit.OK(c, lead)
}
