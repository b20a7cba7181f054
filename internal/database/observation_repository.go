package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/lifemetrics/internal/models"
)

const observationColumns = `e.id, e.metric_id, e.entry_date, e.entry_time::text, e.value, e.tags`

// ObservationRepository reads metrics and their logged entries.
type ObservationRepository struct {
	pool   DatabasePool
	logger *logrus.Logger
}

// NewObservationRepository creates a new observation repository.
func NewObservationRepository(pool DatabasePool, logger *logrus.Logger) *ObservationRepository {
	return &ObservationRepository{
		pool:   pool,
		logger: logger,
	}
}

// LoadObservationsForAnalytics returns every entry of the user's metrics with
// a date inside the range, ordered by date then time of day.
func (r *ObservationRepository) LoadObservationsForAnalytics(ctx context.Context, userID string, dateRange models.DateRange) ([]models.Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM entries e
		JOIN metrics m ON m.id = e.metric_id
		WHERE m.user_id = $1 AND e.entry_date BETWEEN $2 AND $3
		ORDER BY e.entry_date, e.entry_time NULLS FIRST, e.id
	`

	observations, err := r.queryObservations(ctx, query, userID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations for user %s: %w", userID, err)
	}
	return observations, nil
}

// LoadObservationsForMetric returns the entries of one metric owned by the user.
func (r *ObservationRepository) LoadObservationsForMetric(ctx context.Context, userID, metricID string, dateRange models.DateRange) ([]models.Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM entries e
		JOIN metrics m ON m.id = e.metric_id
		WHERE m.user_id = $1 AND e.metric_id = $2 AND e.entry_date BETWEEN $3 AND $4
		ORDER BY e.entry_date, e.entry_time NULLS FIRST, e.id
	`

	observations, err := r.queryObservations(ctx, query, userID, metricID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations for metric %s: %w", metricID, err)
	}
	return observations, nil
}

func (r *ObservationRepository) queryObservations(ctx context.Context, query string, args ...interface{}) ([]models.Observation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := make([]models.Observation, 0)
	for rows.Next() {
		var (
			obs       models.Observation
			entryDate time.Time
			payload   []byte
		)
		if err := rows.Scan(&obs.ID, &obs.MetricID, &entryDate, &obs.Time, &payload, &obs.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		obs.Date = models.CalendarDate(entryDate)

		// A payload that is not even JSON stays an empty value and is skipped by analysis.
		if err := json.Unmarshal(payload, &obs.Value); err != nil {
			r.logger.WithFields(logrus.Fields{
				"entry_id":  obs.ID,
				"metric_id": obs.MetricID,
				"error":     err.Error(),
			}).Debug("Ignoring malformed entry value")
			obs.Value = models.RawValue{}
		}
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return observations, nil
}

// ListMetrics returns the metrics owned by the user ordered by ID.
func (r *ObservationRepository) ListMetrics(ctx context.Context, userID string) ([]models.Metric, error) {
	query := `
		SELECT id, user_id, name, metric_type, category
		FROM metrics
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics for user %s: %w", userID, err)
	}
	defer rows.Close()

	metrics := make([]models.Metric, 0)
	for rows.Next() {
		var (
			metric     models.Metric
			metricType string
		)
		if err := rows.Scan(&metric.ID, &metric.UserID, &metric.Name, &metricType, &metric.Category); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metric.Type = models.MetricType(metricType)
		metrics = append(metrics, metric)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}
	return metrics, nil
}
