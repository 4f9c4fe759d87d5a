// Package response writes service results and boundary failures as JSON envelopes.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/result"
)

// Done writes r with its own status code.
func Done[T any](c *gin.Context, r result.Result[T]) {
	c.JSON(r.Code(), r.Envelope())
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, result.Err[struct{}](code, msg).Envelope())
}

// NotProvided sends a 400 response for a missing field
func NotProvided(c *gin.Context, field string) {
	fail(c, http.StatusBadRequest, fmt.Sprintf("%s was not provided", field))
}

// InvalidField sends a 400 response for a malformed field
func InvalidField(c *gin.Context, field string) {
	fail(c, http.StatusBadRequest, fmt.Sprintf("%s is invalid", field))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, msg)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, entity string) {
	fail(c, http.StatusNotFound, fmt.Sprintf("%s not found", entity))
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context) {
	fail(c, http.StatusUnauthorized, result.MsgAuthenticationFailed)
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, msg string) {
	fail(c, http.StatusServiceUnavailable, msg)
}

// ServerError logs err and sends a 500 response carrying its message.
func ServerError(c *gin.Context, err error) {
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	fail(c, http.StatusInternalServerError, err.Error())
}

// BindError maps a binding failure to the first offending field.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		BadRequest(c, "Invalid request body")
		return
	}

	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		NotProvided(c, fe.Field())
	case fe.Tag() == "eqfield" && fe.Param() == "Password":
		BadRequest(c, "Passwords do not match")
	case fe.Tag() == "min" && fe.Field() == "Password":
		BadRequest(c, fmt.Sprintf("Password should be at least %d characters", constants.MinPasswordLength))
	default:
		InvalidField(c, fe.Field())
	}
}

// Recovery turns panics into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		ServerError(c, fmt.Errorf("panic: %v", recovered))
	})
}
