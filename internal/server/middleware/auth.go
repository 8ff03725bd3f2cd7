package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"festival-companion/backend/internal/security"
)

const bearerPrefix = "bearer "

// AdminAuth validates the admin Bearer token and stores the admin id on the request context.
// Requests without a valid token are rejected with 401.
func AdminAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" || tokens == nil {
			abortUnauthorized(c)
			return
		}
		adminID, err := tokens.ValidateAdmin(token)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Request = c.Request.WithContext(WithAdmin(c.Request.Context(), adminID))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="festival-admin"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_token",
		"error_description": "missing or invalid authorization",
	})
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
