package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/requestid"
)

// RequestID injects a request ID into the context and response header.
// An incoming X-Request-ID is preserved.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
