package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/models"
)

// RequireRoles admits registered users holding one of roles. It must run
// after Auth.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		actor := Actor(c)
		if actor.Anonymous() {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, ok := roleSet[actor.Role]; !ok || actor.IsGuest {
			abort(c, http.StatusForbidden, "permission_denied")
			return
		}
		c.Next()
	}
}
