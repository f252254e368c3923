package rpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/redbco/wings/pkg/adapter"
)

// CheckFunc performs one health check.
type CheckFunc func(ctx context.Context) error

// Check is the latest result of a named check.
type Check struct {
	Name        string
	Healthy     bool
	Message     string
	LastChecked time.Time
}

// Checker runs health checks and publishes the overall status of the
// Records service to a gRPC health server.
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]*Check
	lastHealthy time.Time
	server      *health.Server
}

// NewChecker creates a checker publishing to server. A nil server only
// records results.
func NewChecker(server *health.Server) *Checker {
	return &Checker{
		checks:      make(map[string]*Check),
		lastHealthy: time.Now(),
		server:      server,
	}
}

// BackendCheck probes a backend with an unfiltered count.
func BackendCheck(b adapter.Backend) CheckFunc {
	return func(ctx context.Context) error {
		_, err := b.Count(ctx, nil)
		return err
	}
}

// RunCheck executes a check and updates the published status.
func (c *Checker) RunCheck(ctx context.Context, name string, fn CheckFunc) {
	check := &Check{Name: name, Healthy: true, Message: "OK", LastChecked: time.Now()}
	if err := fn(ctx); err != nil {
		check.Healthy = false
		check.Message = err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
	healthy := c.isHealthy()
	if healthy {
		c.lastHealthy = check.LastChecked
	}
	if c.server != nil {
		st := healthpb.HealthCheckResponse_SERVING
		if !healthy {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		c.server.SetServingStatus(ServiceName, st)
	}
}

// Watch runs fn every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, name string, fn CheckFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.RunCheck(ctx, name, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunCheck(ctx, name, fn)
		}
	}
}

// Healthy reports whether every check passed on its last run.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isHealthy()
}

// Checks returns a copy of every check result.
func (c *Checker) Checks() []Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		out = append(out, *check)
	}
	return out
}

// LastHealthyTime returns the last time all checks were healthy.
func (c *Checker) LastHealthyTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthy
}

func (c *Checker) isHealthy() bool {
	for _, check := range c.checks {
		if !check.Healthy {
			return false
		}
	}
	return true
}
