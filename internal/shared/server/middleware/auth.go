package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/server/respond"
)

const (
	userIDKey = "userId"

	// SessionCookie is the cookie the session token travels in.
	SessionCookie = "session_token"
)

// SessionLookup resolves a session token to a user id. ok is false for
// unknown tokens; expired is true for tokens past their expiry.
type SessionLookup func(token string) (userID string, expired bool, ok bool)

// Auth requires a session token from the session_token cookie or, failing
// that, an Authorization bearer header.
func Auth(lookup SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token := SessionTokenFromRequest(c)
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		userID, expired, ok := lookup(token)
		if !ok || expired {
			respond.Error(c, http.StatusUnauthorized, "Session expired")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// SessionTokenFromRequest returns the cookie token, else the bearer token.
func SessionTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
