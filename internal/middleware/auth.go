package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/logging"
	"github.com/yukikurage/recados-api/internal/response"
)

// TokenVerifier resolves a session token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate sets the caller's user id in the context when the request
// carries a valid token. Requests without one continue anonymously and the
// services decide whether that is acceptable.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := tokenFromRequest(c); raw != "" {
			if userID, err := verifier.Verify(raw); err == nil {
				c.Set(constants.ContextKeyUserID, userID)
				c.Request = c.Request.WithContext(logging.WithUserID(c.Request.Context(), userID))
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests that Authenticate did not identify.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context, or "" when anonymous
func GetUserID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserID)
}

// tokenFromRequest prefers a Bearer header and falls back to the token saved
// in the session at login.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	token, _ := sessions.Default(c).Get(constants.SessionKeyToken).(string)
	return token
}
