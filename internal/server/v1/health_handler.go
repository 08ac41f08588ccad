package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	startTime time.Time
	version   string
	db        Pinger
}

func NewHealthHandler(version string, db Pinger) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		db:        db,
	}
}

// Health returns the health status and uptime of the API. It answers 503
// when the database cannot be reached.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	database := "ok"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			database = err.Error()
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"version":  h.version,
		"database": database,
		"uptime":   time.Since(h.startTime).String(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
