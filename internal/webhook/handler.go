package webhook

import (
	"net/http"

	"leadrouter_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdLeadRequest is the provider callback payload. Fields carries the
// variable-schema form values keyed by provider-defined labels.
type AdLeadRequest struct {
	Provider   string            `json:"provider" validate:"required,min=2,max=50"`
	LeadID     string            `json:"lead_id" validate:"max=200"`
	CampaignID string            `json:"campaign_id" validate:"required,max=200"`
	Fields     map[string]string `json:"fields" validate:"required"`
}

// Handler handles webhook HTTP requests.
type Handler struct {
	svc      *Service
	validate StructValidator
}

// StructValidator validates request structs against their tags.
type StructValidator interface {
	Struct(s interface{}) error
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, validate StructValidator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

// RegisterRoutes mounts the webhook routes. The group is expected to carry
// the API key middleware already.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ad-leads", h.SubmitAdLead)
}

// SubmitAdLead receives one ad-provider lead callback.
func (h *Handler) SubmitAdLead(c *gin.Context) {
	var req AdLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	keyID, _ := c.Get("webhookKeyID")
	apiKeyID, _ := keyID.(uuid.UUID)

	result, err := h.svc.ProcessAdLead(c.Request.Context(), AdSubmission{
		Provider:       req.Provider,
		ProviderLeadID: req.LeadID,
		CampaignID:     req.CampaignID,
		Fields:         req.Fields,
		SourceDomain:   c.GetHeader("Origin"),
		APIKeyID:       apiKeyID,
	})
	if err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
	}

	httpkit.OK(c, result)
}
