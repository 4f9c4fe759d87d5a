// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/metrics"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/result"
)

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Checker struct {
	deps    map[string]Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker(deps map[string]Pinger, timeout time.Duration, logger *slog.Logger) *Checker {
	return &Checker{deps: deps, timeout: timeout, logger: logger.With("component", "health")}
}

// Check pings every dependency and returns the names of those that failed.
func (h *Checker) Check(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var failed []string
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "dependency not ready", "dependency", name, "error", err)
			metrics.DependencyUp.WithLabelValues(name).Set(0)
			failed = append(failed, name)
			continue
		}
		metrics.DependencyUp.WithLabelValues(name).Set(1)
	}
	return failed
}

// Live always answers 200 while the process is serving.
func (h *Checker) Live(c *gin.Context) {
	response.Done(c, result.Ok(http.StatusOK, "Alive", ""))
}

// Ready answers 200 only when every dependency responds.
func (h *Checker) Ready(c *gin.Context) {
	if failed := h.Check(c.Request.Context()); len(failed) > 0 {
		response.ServiceUnavailable(c, "Not ready")
		return
	}
	response.Done(c, result.Ok(http.StatusOK, "Ready", ""))
}
