package middleware

import (
	"github.com/gin-gonic/gin"
)

// RequestObserver counts finished requests.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

// Metrics counts requests by route template and status.
type Metrics struct {
	observer RequestObserver
}

func NewMetrics(observer RequestObserver) *Metrics {
	return &Metrics{observer: observer}
}

func (m *Metrics) Handle(c *gin.Context) {
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	m.observer.ObserveRequest(route, c.Writer.Status())
}
