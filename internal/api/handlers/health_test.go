package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHealthChecker mocks a database or Redis connection
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func setupHealthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", h.HealthCheck)
	router.GET("/live", h.LivenessCheck)
	return router
}

func TestHealthHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		redisErr   error
		wantStatus int
		wantDB     string
		wantRedis  string
	}{
		{"all healthy", nil, nil, http.StatusOK, "healthy", "healthy"},
		{"database down", errors.New("connection refused"), nil, http.StatusServiceUnavailable, "unhealthy: connection refused", "healthy"},
		{"redis down", nil, errors.New("dial tcp: timeout"), http.StatusServiceUnavailable, "healthy", "unhealthy: dial tcp: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, redis := new(MockHealthChecker), new(MockHealthChecker)
			db.On("HealthCheck", mock.Anything).Return(tt.dbErr)
			redis.On("HealthCheck", mock.Anything).Return(tt.redisErr)

			w := perform(setupHealthRouter(NewHealthHandler(db, redis, "1.0.0")), http.MethodGet, "/health")
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDB, resp.Services["database"])
			assert.Equal(t, tt.wantRedis, resp.Services["redis"])
			assert.Equal(t, "1.0.0", resp.Version)
			assert.NotEmpty(t, resp.Uptime)
		})
	}
}

func TestHealthHandler_NotConfigured(t *testing.T) {
	w := perform(setupHealthRouter(NewHealthHandler(nil, nil, "")), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestHealthHandler_LivenessCheck(t *testing.T) {
	w := perform(setupHealthRouter(NewHealthHandler(nil, nil, "")), http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}
