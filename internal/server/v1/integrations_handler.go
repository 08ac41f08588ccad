package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/server/validator"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/pkg/api"
)

type IntegrationHandler struct {
	service *integrations.Service
}

func NewIntegrationHandler(service *integrations.Service) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// GET /v1/integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	integs, err := h.service.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.IntegrationResponse, 0, len(integs))
	for i := range integs {
		out = append(out, toIntegrationResponse(&integs[i]))
	}
	c.JSON(http.StatusOK, api.NewList(out))
}

// GET /v1/integrations/:id
func (h *IntegrationHandler) Get(c *gin.Context) {
	integ, err := h.service.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResponse(integ))
}

// Create answers 201 for a new integration and 200 when one with the same
// derived provider id already exists.
//
// POST /v1/integrations
func (h *IntegrationHandler) Create(c *gin.Context) {
	in, ok := bindIntegration(c)
	if !ok {
		return
	}

	integ, created, err := h.service.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toIntegrationResponse(integ))
}

// PUT /v1/integrations/:id
func (h *IntegrationHandler) Update(c *gin.Context) {
	in, ok := bindIntegration(c)
	if !ok {
		return
	}

	integ, err := h.service.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResponse(integ))
}

// DELETE /v1/integrations/:id
func (h *IntegrationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindIntegration(c *gin.Context) (integrations.Input, bool) {
	var req api.IntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return integrations.Input{}, false
	}

	fallbacks := make([]model.Endpoint, 0, len(req.Fallbacks))
	for _, fb := range req.Fallbacks {
		fallbacks = append(fallbacks, model.Endpoint{URL: fb.URL, APIKey: fb.APIKey})
	}
	return integrations.Input{
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		APIShape:  req.APIType,
		Fallbacks: fallbacks,
		IsActive:  req.IsActive,
	}, true
}

func toIntegrationResponse(integ *model.Integration) api.IntegrationResponse {
	fallbacks := make([]api.EndpointResponse, 0, len(integ.Fallbacks))
	for _, fb := range integ.Fallbacks {
		fallbacks = append(fallbacks, api.EndpointResponse{URL: fb.URL, HasKey: fb.APIKey != ""})
	}
	return api.IntegrationResponse{
		ID:         integ.ID,
		Name:       integ.Name,
		ProviderID: integ.ProviderID,
		BaseURL:    integ.BaseURL,
		APIType:    integ.APIShape,
		IsActive:   integ.IsActive,
		Fallbacks:  fallbacks,
		CreatedAt:  integ.CreatedAt,
		UpdatedAt:  integ.UpdatedAt,
	}
}
