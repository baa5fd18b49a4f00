package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vidya-portal/backend/pkg/response"
)

// RequireRole returns a middleware that allows only callers whose token role
// is one of the given roles. Must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
