package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/housing/internal/middleware"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout is the timeout for backend health checks
	HealthCheckTimeout = 2 * time.Second
)

// Pinger is a backend whose reachability affects readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessSource reports whether a dataset is loaded and which one.
type ReadinessSource interface {
	Ready() bool
	Version() string
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	data      ReadinessSource
	backends  map[string]Pinger
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
// backends may be nil when the server runs without a database or cache.
func NewHealthHandler(data ReadinessSource, backends map[string]Pinger, env string) *HealthHandler {
	return &HealthHandler{
		data:      data,
		backends:  backends,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Backends map[string]string `json:"backends,omitempty"`
	Status   string            `json:"status"`
	Dataset  string            `json:"dataset"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version        string `json:"version"`
	Environment    string `json:"environment"`
	Uptime         string `json:"uptime"`
	DatasetVersion string `json:"dataset_version,omitempty"`
}

// Health handles GET /health endpoint.
// This is a basic health check that always returns 200 OK.
// It does not check any dependencies and is used for basic liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Returns 200 OK when a dataset is loaded and every backend answers a ping,
// 503 Service Unavailable otherwise.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Dataset: "loaded"}
	if h.data == nil || !h.data.Ready() {
		resp.Status = "not_ready"
		resp.Dataset = "unavailable"
	}

	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if resp.Backends == nil {
			resp.Backends = make(map[string]string, len(names))
		}
		if err := h.backends[name].Ping(ctx); err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Backend health check failed", err, map[string]interface{}{
					"backend": name,
					"timeout": HealthCheckTimeout.String(),
				})
			}
			resp.Backends[name] = "disconnected"
			resp.Status = "not_ready"
			continue
		}
		resp.Backends[name] = "connected"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, uptime and the
// loaded dataset version.
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	resp := InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(uptime),
	}
	if h.data != nil {
		resp.DatasetVersion = h.data.Version()
	}
	c.JSON(http.StatusOK, resp)
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
