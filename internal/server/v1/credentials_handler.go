package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/gateway"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/server/validator"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/pkg/api"
)

type CredentialHandler struct {
	service *credentials.Service
}

func NewCredentialHandler(service *credentials.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// GET /v1/credentials
func (h *CredentialHandler) List(c *gin.Context) {
	creds, err := h.service.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, toCredentialResponse(&cred))
	}
	c.JSON(http.StatusOK, api.NewList(out))
}

// Put validates and stores a key; it replaces any existing key for the provider.
//
// PUT /v1/credentials/:provider
func (h *CredentialHandler) Put(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	var req api.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	cred, err := h.service.Save(c.Request.Context(), middleware.UserID(c), provider, req.APIKey)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toCredentialResponse(cred))
}

// DELETE /v1/credentials/:provider
func (h *CredentialHandler) Delete(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), provider); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func providerParam(c *gin.Context) (string, bool) {
	provider := c.Param("provider")
	if !gateway.IsHosted(provider) && !gateway.IsCustom(provider) {
		_ = c.Error(api.BadRequestError("unknown provider: "+provider, api.WithKind(string(gateway.KindUnknownProvider))))
		return "", false
	}
	return provider, true
}

func toCredentialResponse(cred *model.Credential) api.CredentialResponse {
	return api.CredentialResponse{
		Provider:  cred.Provider,
		KeyPrefix: cred.KeyPrefix,
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.UpdatedAt,
	}
}
