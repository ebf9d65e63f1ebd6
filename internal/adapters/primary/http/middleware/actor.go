package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ai-bom-service/internal/core/domain"
)

const HeaderActor = "X-Actor"

// Actor copies the caller-supplied X-Actor header into the request context
// so audit entries and events can attribute the change. The value is not
// authenticated.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}
