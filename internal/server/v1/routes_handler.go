package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/pkg/api"
)

type RoutesHandler struct {
	service analytics.Service
}

func NewRoutesHandler(service analytics.Service) *RoutesHandler {
	return &RoutesHandler{service: service}
}

// Recent lists the caller's latest routed requests.
//
// GET /v1/routes?limit=50
func (h *RoutesHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(analytics.DefaultRecentLimit)))
	if err != nil {
		_ = c.Error(api.BadRequestError("Invalid 'limit' parameter"))
		return
	}

	logs, err := h.service.Recent(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch route logs", err))
		return
	}
	c.JSON(http.StatusOK, api.NewList(logs))
}

// GET /v1/routes/stats
func (h *RoutesHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch route stats", err))
		return
	}
	c.JSON(http.StatusOK, api.NewList(stats))
}
