package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/result"
)

// respond writes a service outcome. Infrastructure errors become a 500.
func respond[T any](c *gin.Context, r result.Result[T], err error) {
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Done(c, r)
}

// optional treats a blank string like an absent field.
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// bindOptional binds a body whose fields are all optional. An empty body
// leaves req at its zero value.
func bindOptional(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
