package interfaces

import (
	"context"

	"github.com/irfndi/lifemetrics/internal/models"
)

// ObservationSource loads read-only snapshots of logged observations.
// Results are ordered ascending by date, then time of day.
type ObservationSource interface {
	// LoadObservationsForAnalytics returns every observation of the user's metrics in the range.
	LoadObservationsForAnalytics(ctx context.Context, userID string, dateRange models.DateRange) ([]models.Observation, error)
	// LoadObservationsForMetric returns the observations of one metric in the range.
	LoadObservationsForMetric(ctx context.Context, userID, metricID string, dateRange models.DateRange) ([]models.Observation, error)
	// ListMetrics returns the metrics owned by the user.
	ListMetrics(ctx context.Context, userID string) ([]models.Metric, error)
}

// InsightPersister stores generated bundles.
type InsightPersister interface {
	SaveInsights(ctx context.Context, bundle *models.InsightBundle) error
}

// InsightBroadcaster announces freshly generated bundles to subscribers.
type InsightBroadcaster interface {
	BroadcastInsights(ctx context.Context, bundle *models.InsightBundle) error
}

// InsightReader returns the most recent stored bundle for a user.
// found is false when nothing is stored.
type InsightReader interface {
	GetInsights(ctx context.Context, userID string) (bundle *models.InsightBundle, found bool, err error)
}
