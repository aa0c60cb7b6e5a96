// Package health tracks store reachability for readiness probes.
package health

import (
	"context"
	"sync/atomic"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/model"
)

const pingTimeout = 2 * time.Second

// Checker pings the store and mirrors the result into the gRPC health server.
type Checker struct {
	pinger   model.Pinger
	status   *grpchealth.Server
	interval time.Duration
	logger   *logger.Logger

	ready atomic.Bool
}

func NewChecker(pinger model.Pinger, status *grpchealth.Server, interval time.Duration, logger *logger.Logger) *Checker {
	return &Checker{
		pinger:   pinger,
		status:   status,
		interval: interval,
		logger:   logger.With("component", "health"),
	}
}

// Check pings the store once and records the result.
func (c *Checker) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := c.pinger.Ping(pingCtx)
	ok := err == nil

	if prev := c.ready.Swap(ok); prev != ok {
		if ok {
			c.logger.Info("Health checker: store is reachable")
		} else {
			c.logger.Warn("Health checker: store is unreachable",
				"error", err.Error())
		}
	}

	if c.status != nil {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if ok {
			st = healthpb.HealthCheckResponse_SERVING
		}
		c.status.SetServingStatus("", st)
	}

	return ok
}

// Run checks immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if c.status != nil {
				c.status.Shutdown()
			}
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Ready reports the result of the latest check.
func (c *Checker) Ready() bool {
	return c.ready.Load()
}
