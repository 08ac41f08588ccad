package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/server/validator"
	"github.com/nulzo/chat-router/pkg/api"
)

type ChatHandler struct {
	service *chat.Service
}

func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// Send routes one prompt to the requested provider.
//
// POST /v1/chat
func (h *ChatHandler) Send(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	out, err := h.service.Send(c.Request.Context(), middleware.UserID(c), chat.Input{
		ProviderID: req.ProviderID,
		Model:      req.Model,
		Prompt:     req.Prompt,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.ChatResponse{
		Reply:     out.Reply,
		UsedModel: out.UsedModel,
		Attempts:  out.Attempts,
	})
}
