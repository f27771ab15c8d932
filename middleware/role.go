package middleware

import (
	"net/http"

	"marketplace/utils"

	"github.com/gin-gonic/gin"
)

// RequireRole admits only authenticated accounts holding one of roles.
// It must run after JWTAuthUserMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		usr, ok := CurrentUser(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
			return
		}
		for _, r := range roles {
			if usr.Role == r {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "You do not have permission to perform this action.", nil)
	}
}
