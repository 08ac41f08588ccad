package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/pkg/api"
)

const (
	HeaderUserID = "X-User-ID"
	userIDKey    = "user_id"
	maxUserIDLen = 128
)

// Identity requires the X-User-ID header and stores it on the context.
// Authentication happens upstream of this service.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			_ = c.Error(api.UnauthorizedError("missing " + HeaderUserID + " header"))
			c.Abort()
			return
		}
		if len(userID) > maxUserIDLen {
			_ = c.Error(api.BadRequestError(HeaderUserID + " header is too long"))
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the identity set by Identity, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
