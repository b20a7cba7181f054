package services

import (
	"time"

	"github.com/irfndi/lifemetrics/internal/models"
)

// monday is the first day of every fixture series.
var monday = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return monday.AddDate(0, 0, offset)
}

func floatPtr(v float64) *float64 {
	return &v
}

// dailySeries places one point per consecutive day starting on monday.
func dailySeries(values ...float64) []models.NumericPoint {
	series := make([]models.NumericPoint, len(values))
	for i, v := range values {
		series[i] = models.NumericPoint{Date: day(i), Value: v}
	}
	return series
}

func point(metricID string, offset int, v float64) models.NormalizedObservation {
	return models.NormalizedObservation{MetricID: metricID, Date: day(offset), Value: floatPtr(v)}
}

// dailyPoints places one normalized observation per consecutive day.
func dailyPoints(metricID string, values ...float64) []models.NormalizedObservation {
	out := make([]models.NormalizedObservation, len(values))
	for i, v := range values {
		out[i] = point(metricID, i, v)
	}
	return out
}

// dailyObservations builds raw observations with one entry per consecutive day.
func dailyObservations(metricID string, value func(float64) models.RawValue, values ...float64) []models.Observation {
	out := make([]models.Observation, len(values))
	for i, v := range values {
		out[i] = models.Observation{
			ID:       metricID + "-" + day(i).Format(models.DateLayout),
			MetricID: metricID,
			Date:     day(i),
			Value:    value(v),
		}
	}
	return out
}
