package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/security"
)

const (
	actorKey       = "actor"
	currentUserKey = "current_user"
	claimsKey      = "access_claims"
)

// Auth requires a valid bearer token backed by a live session.
func Auth(secret string, users repository.Users, sessions repository.Sessions) gin.HandlerFunc {
	return authenticate(secret, users, sessions, true)
}

// OptionalAuth identifies the caller when a token is present and lets
// anonymous visitors through otherwise. A token that is present but invalid
// is still rejected.
func OptionalAuth(secret string, users repository.Users, sessions repository.Sessions) gin.HandlerFunc {
	return authenticate(secret, users, sessions, false)
}

func authenticate(secret string, users repository.Users, sessions repository.Sessions, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" && !required {
			c.Set(actorKey, models.Actor{})
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "missing_token")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := c.Request.Context()
		session, err := sessions.GetByID(ctx, claims.SessionID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "session_not_found")
			return
		}
		if session.UserID != claims.UserID || session.DeviceID != claims.DeviceID {
			abort(c, http.StatusUnauthorized, "session_mismatch")
			return
		}

		user, err := users.GetByID(ctx, claims.UserID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "user_not_found")
			return
		}

		_ = sessions.Touch(ctx, session.ID, c.ClientIP(), c.GetHeader("User-Agent"))

		// The role is read from the user row so a role change applies
		// without waiting for the token to expire.
		c.Set(claimsKey, *claims)
		c.Set(currentUserKey, user)
		c.Set(actorKey, user.Actor())
		c.Next()
	}
}

// Actor returns the caller identified by Auth or OptionalAuth. Requests that
// went through neither are anonymous.
func Actor(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func Claims(c *gin.Context) (security.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return security.AccessClaims{}, false
	}
	claims, ok := v.(security.AccessClaims)
	return claims, ok
}

func abort(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": http.StatusText(status)})
}
