package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker probes one backend.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a named function to HealthChecker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Label }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// ChecksFromMap turns a name->probe map into checkers ordered by name.
func ChecksFromMap[F ~func(ctx context.Context) error](checks map[string]F) []HealthChecker {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]HealthChecker, 0, len(names))
	for _, name := range names {
		out = append(out, CheckFunc{Label: name, Fn: checks[name]})
	}
	return out
}

// HealthHandler serves liveness and readiness probes. Readiness requires a
// loaded catalog snapshot and every backend check to pass.
type HealthHandler struct {
	checkers []HealthChecker
	ready    func() bool
	version  string
	startAt  time.Time
}

func NewHealthHandler(version string, ready func() bool, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		ready:    ready,
		version:  version,
		startAt:  time.Now(),
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Snapshot   string                    `json:"snapshot"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Snapshot: "loaded"}
	healthy := true
	if h.ready != nil && !h.ready() {
		resp.Snapshot = "missing"
		healthy = false
	}
	if len(h.checkers) > 0 {
		resp.Components = h.checkAll(ctx)
		for _, cc := range resp.Components {
			if cc.Status != "healthy" {
				healthy = false
			}
		}
	}

	if !healthy {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := hc.Check(ctx)
			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}

			mu.Lock()
			results[hc.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}
