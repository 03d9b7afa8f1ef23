package login

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalbot-backend/migrations"
)

const userContextKey = "auth_user"

// CurrentUser returns the authenticated user placed in the context by
// RequireUser, or nil outside an authenticated route.
func CurrentUser(c *gin.Context) *migrations.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(*migrations.User); ok {
			return u
		}
	}
	return nil
}

// RequireUser resolves the bearer token to an active, verified user and
// aborts with 401 otherwise.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || token == auth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		username, ok := ParseToken(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		user := migrations.GetUserByUsername(username)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Inactive user"})
			return
		}
		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Email not verified"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAdmin runs after RequireUser and rejects non-admin callers.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
			return
		}
		c.Next()
	}
}
