package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/esn-portal/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireValidator allows admins and ESN members, the callers permitted to
// record attendance. The flag comes from the token, so it reflects
// membership at login; the attendance service re-checks against the user
// directory before writing.
func RequireValidator() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, _ := c.Get(ContextUserRole)
		role, _ := roleVal.(string)
		memberVal, _ := c.Get(ContextESNMember)
		member, _ := memberVal.(bool)
		if role != "admin" && !member {
			response.Forbidden(c, "validator privilege required")
			c.Abort()
			return
		}
		c.Next()
	}
}
