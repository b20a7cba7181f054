package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/lifemetrics/internal/api/handlers"
	"github.com/irfndi/lifemetrics/internal/middleware"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies are the collaborators the routes need.
type Dependencies struct {
	ServiceName string
	Insights    handlers.InsightProvider
	Database    handlers.HealthChecker
	Redis       handlers.HealthChecker
	Logger      *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(otelgin.Middleware(deps.ServiceName, otelgin.WithFilter(middleware.SkipHealthChecks)))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Redis, Version)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	insightHandler := handlers.NewInsightHandler(deps.Insights, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users/:user_id")
		{
			users.GET("/correlations", insightHandler.GetCorrelations)
			users.GET("/metrics/:metric_id/trend", insightHandler.GetTrend)
			users.GET("/insights", insightHandler.GetInsights)
			users.POST("/insights/refresh", insightHandler.RefreshInsights)
		}
	}
}
