package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/service"
)

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set("account", session.Account)
		c.Set("level", string(session.Level))

		c.Next()
	}
}

// sessionAccount resolves the authenticated account for the OAuth
// interaction routes, where an anonymous visitor is allowed and gets the
// login prompt instead of a 401.
func sessionAccount(c *gin.Context, authService *service.AuthService) string {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		token, _ = c.Cookie("warden_access")
	}
	if token == "" {
		return ""
	}

	session, err := authService.ValidateAccessToken(c.Request.Context(), token)
	if err != nil {
		return ""
	}
	return session.Account
}
