package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/lifemetrics/internal/middleware"
	"github.com/irfndi/lifemetrics/internal/models"
	"github.com/irfndi/lifemetrics/internal/services"
	"github.com/irfndi/lifemetrics/internal/utils"
)

// InsightProvider is the analytics surface served over HTTP.
type InsightProvider interface {
	CalculateCorrelationsWithMethod(ctx context.Context, userID string, dateRange *models.DateRange, method services.CorrelationMethod) ([]models.CorrelationResult, error)
	DetectTrends(ctx context.Context, userID, metricID string, dateRange *models.DateRange) (models.TrendResult, error)
	GenerateInsights(ctx context.Context, userID string, dateRange *models.DateRange) (*models.InsightBundle, error)
	RefreshInsights(ctx context.Context, userID string) (*models.InsightBundle, error)
	CachedInsights(ctx context.Context, userID string) (*models.InsightBundle, error)
}

type InsightHandler struct {
	insights InsightProvider
	logger   *logrus.Logger
}

type CorrelationsResponse struct {
	UserID       string                     `json:"user_id"`
	Method       services.CorrelationMethod `json:"method"`
	Correlations []models.CorrelationResult `json:"correlations"`
	Count        int                        `json:"count"`
}

type TrendResponse struct {
	UserID   string             `json:"user_id"`
	MetricID string             `json:"metric_id"`
	Trend    models.TrendResult `json:"trend"`
}

func NewInsightHandler(insights InsightProvider, logger *logrus.Logger) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		logger:   logger,
	}
}

// parseRange reads the optional start/end query parameters. Both absent means
// the service default; one without the other is rejected.
func parseRange(c *gin.Context) (*models.DateRange, error) {
	start, end := c.Query("start"), c.Query("end")
	switch {
	case start == "" && end == "":
		return nil, nil
	case start == "":
		return nil, utils.NewFieldValidationError("start", "required when end is set")
	case end == "":
		return nil, utils.NewFieldValidationError("end", "required when start is set")
	}

	r, err := models.ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// respondError maps service errors to status codes: validation failures are
// 400, deadline expiry 504, everything else 500.
func (h *InsightHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Failed to compute insights"

	switch {
	case utils.IsValidationError(err):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrInsightTimeout):
		status = http.StatusGatewayTimeout
		message = "Insight computation timed out"
	}

	if status >= http.StatusInternalServerError {
		middleware.RecordError(c, err, message)
		h.logger.WithFields(logrus.Fields{
			"user_id":    c.Param("user_id"),
			"request_id": middleware.GetRequestID(c),
			"error":      err.Error(),
		}).Error(message)
	}
	c.JSON(status, gin.H{"error": message})
}

// GetCorrelations handles GET /users/:user_id/correlations.
func (h *InsightHandler) GetCorrelations(c *gin.Context) {
	userID := c.Param("user_id")

	method, ok := services.ParseCorrelationMethod(c.Query("method"))
	if !ok {
		h.respondError(c, utils.NewFieldValidationError("method", "unsupported correlation method %q", c.Query("method")))
		return
	}

	dateRange, err := parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	correlations, err := h.insights.CalculateCorrelationsWithMethod(c.Request.Context(), userID, dateRange, method)
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "insights.correlations", len(correlations))
	c.JSON(http.StatusOK, CorrelationsResponse{
		UserID:       userID,
		Method:       method,
		Correlations: correlations,
		Count:        len(correlations),
	})
}

// GetTrend handles GET /users/:user_id/metrics/:metric_id/trend.
func (h *InsightHandler) GetTrend(c *gin.Context) {
	userID, metricID := c.Param("user_id"), c.Param("metric_id")

	dateRange, err := parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	trend, err := h.insights.DetectTrends(c.Request.Context(), userID, metricID, dateRange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TrendResponse{
		UserID:   userID,
		MetricID: metricID,
		Trend:    trend,
	})
}

// GetInsights handles GET /users/:user_id/insights. Without an explicit range
// the stored bundle is served when one exists.
func (h *InsightHandler) GetInsights(c *gin.Context) {
	userID := c.Param("user_id")

	dateRange, err := parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var bundle *models.InsightBundle
	if dateRange == nil {
		bundle, err = h.insights.CachedInsights(c.Request.Context(), userID)
	} else {
		bundle, err = h.insights.GenerateInsights(c.Request.Context(), userID, dateRange)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "insights.bundle_id", bundle.ID)
	c.JSON(http.StatusOK, bundle)
}

// RefreshInsights handles POST /users/:user_id/insights/refresh.
func (h *InsightHandler) RefreshInsights(c *gin.Context) {
	bundle, err := h.insights.RefreshInsights(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "insights.bundle_id", bundle.ID)
	c.JSON(http.StatusOK, bundle)
}
