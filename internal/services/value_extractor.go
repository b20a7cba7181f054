package services

import "github.com/irfndi/lifemetrics/internal/models"

// ExtractValue reduces a heterogeneous payload to a numeric scalar.
// The first present variant wins, in the order value, rating, duration, binary.
// Any other shape yields ok=false; callers exclude such observations rather
// than treating them as zero.
func ExtractValue(rv models.RawValue) (value float64, ok bool) {
	switch {
	case rv.Value != nil:
		return *rv.Value, true
	case rv.Rating != nil:
		return *rv.Rating, true
	case rv.Duration != nil:
		return *rv.Duration, true
	case rv.Binary != nil:
		if *rv.Binary {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// NormalizeObservations runs ExtractValue once over a snapshot so every
// detector sees the same numeric view.
func NormalizeObservations(observations []models.Observation) []models.NormalizedObservation {
	normalized := make([]models.NormalizedObservation, 0, len(observations))
	for _, obs := range observations {
		n := models.NormalizedObservation{
			MetricID: obs.MetricID,
			Date:     models.CalendarDate(obs.Date),
		}
		if v, ok := ExtractValue(obs.Value); ok {
			n.Value = &v
		}
		normalized = append(normalized, n)
	}
	return normalized
}

// numericSeries returns the dated numeric points of one metric in input order.
func numericSeries(observations []models.NormalizedObservation, metricID string) []models.NumericPoint {
	var series []models.NumericPoint
	for _, obs := range observations {
		if obs.MetricID != metricID || obs.Value == nil {
			continue
		}
		series = append(series, models.NumericPoint{Date: obs.Date, Value: *obs.Value})
	}
	return series
}

// valuesByMetric groups numeric values per metric, dropping non-numeric entries.
func valuesByMetric(observations []models.NormalizedObservation) map[string][]float64 {
	grouped := make(map[string][]float64)
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		grouped[obs.MetricID] = append(grouped[obs.MetricID], *obs.Value)
	}
	return grouped
}
