package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker probes the backing store.
type ReadinessChecker interface {
	Check(ctx context.Context) bool
}

// Health answers GET /healthz.
type Health struct {
	checker ReadinessChecker
}

func NewHealth(checker ReadinessChecker) *Health {
	return &Health{checker: checker}
}

func (h *Health) Status(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if !h.checker.Check(c.Request.Context()) {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
