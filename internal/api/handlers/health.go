package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthChecker is satisfied by the Postgres and Redis connections.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	version string
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

func NewHealthHandler(db, redis HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
	}
}

func checkService(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "unhealthy: not configured"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

// HealthCheck reports the status of the database and Redis. Any unhealthy
// dependency turns the response into a 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	services := map[string]string{
		"database": checkService(ctx, h.db),
		"redis":    checkService(ctx, h.redis),
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" {
			overallStatus = "unhealthy"
			break
		}
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	})
}

// Liveness check for container restarts
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
