package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/inkpost/server/internal/auth"
	appctx "github.com/inkpost/inkpost/server/internal/context"
)

// APIKeyAuth returns a Gin middleware that validates the API key
// from the Authorization header (format: "Bearer sk-xxx") and
// injects the authenticated User into the context.
//
// Lookup is delegated to auth.UserService.GetByAPIKey.
func APIKeyAuth(userSvc auth.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed Authorization header (expected: Bearer <api-key>)",
			})
			return
		}

		user, err := userSvc.GetByAPIKey(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid api key",
			})
			return
		}

		if user.Status != "active" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "account is " + user.Status,
			})
			return
		}

		c.Set(appctx.CtxKeyUser, user)
		c.Next()
	}
}

// AdminTokenAuth returns a Gin middleware that validates the admin bearer
// token against the configured value. Admin access is disabled entirely
// when no token is configured.
func AdminTokenAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin api disabled",
			})
			return
		}
		raw := extractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(raw), []byte(adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid admin token",
			})
			return
		}
		c.Next()
	}
}

// extractBearerToken gets the token from "Authorization: Bearer <token>".
func extractBearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
