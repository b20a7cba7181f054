package services

import (
	"math"
	"sort"
	"time"

	"github.com/irfndi/lifemetrics/internal/models"
)

const (
	streakMaxGapDays   = 2
	minStreakLength    = 3
	streakImproveRatio = 1.1
	streakDeclineRatio = 0.9

	minThresholdPoints = 5 // strictly more than this many are required
	minHabitEntries    = 3
	habitConsistency   = 0.7
	habitVarianceScale = 100.0
	minAnomalyPoints   = 5
	anomalySigma       = 2.0
)

// groupByMetric splits observations per metric, keeping metrics in first-seen
// order and each metric's entries sorted by date (stable on ties).
func groupByMetric(observations []models.NormalizedObservation) ([]string, map[string][]models.NormalizedObservation) {
	var order []string
	grouped := make(map[string][]models.NormalizedObservation)
	for _, obs := range observations {
		if _, seen := grouped[obs.MetricID]; !seen {
			order = append(order, obs.MetricID)
		}
		grouped[obs.MetricID] = append(grouped[obs.MetricID], obs)
	}
	for _, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Date.Before(entries[j].Date)
		})
	}
	return order, grouped
}

func numericPoints(entries []models.NormalizedObservation) []models.NumericPoint {
	var points []models.NumericPoint
	for _, e := range entries {
		if e.Value != nil {
			points = append(points, models.NumericPoint{Date: e.Date, Value: *e.Value})
		}
	}
	return points
}

func pointValues(points []models.NumericPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// DetectStreaks finds runs of at least three entries per metric where each
// entry follows the previous one within two days.
func DetectStreaks(observations []models.NormalizedObservation) []models.Pattern {
	var patterns []models.Pattern
	order, grouped := groupByMetric(observations)

	for _, metricID := range order {
		entries := grouped[metricID]
		start := 0
		for i := 1; i <= len(entries); i++ {
			if i < len(entries) && models.DaysBetween(entries[i-1].Date, entries[i].Date) <= streakMaxGapDays {
				continue
			}
			if run := entries[start:i]; len(run) >= minStreakLength {
				patterns = append(patterns, models.Pattern{
					Type: models.PatternStreak,
					Streak: &models.Streak{
						MetricID:  metricID,
						Length:    len(run),
						StartDate: run[0].Date,
						EndDate:   run[len(run)-1].Date,
						Direction: streakDirection(run),
					},
				})
			}
			start = i
		}
	}
	return patterns
}

func streakDirection(run []models.NormalizedObservation) models.StreakDirection {
	points := numericPoints(run)
	if len(points) < 2 {
		return models.StreakUnknown
	}

	first, last := points[0].Value, points[len(points)-1].Value
	switch {
	case last > first*streakImproveRatio:
		return models.StreakImproving
	case last < first*streakDeclineRatio:
		return models.StreakDeclining
	default:
		return models.StreakStable
	}
}

// DetectThresholdCrossings reports moves out of the mean±σ band for metrics
// with more than five numeric points.
func DetectThresholdCrossings(observations []models.NormalizedObservation) []models.Pattern {
	var patterns []models.Pattern
	order, grouped := groupByMetric(observations)

	for _, metricID := range order {
		points := numericPoints(grouped[metricID])
		if len(points) <= minThresholdPoints {
			continue
		}

		values := pointValues(points)
		m := mean(values)
		sigma := calculateStandardDeviation(values, m)
		upper, lower := m+sigma, m-sigma

		for i := 1; i < len(points); i++ {
			prev, cur := points[i-1].Value, points[i].Value
			switch {
			case prev <= upper && cur > upper:
				patterns = append(patterns, crossing(metricID, models.CrossingUpward, upper, points[i]))
			case prev >= lower && cur < lower:
				patterns = append(patterns, crossing(metricID, models.CrossingDownward, lower, points[i]))
			}
		}
	}
	return patterns
}

func crossing(metricID string, dir models.CrossingDirection, threshold float64, p models.NumericPoint) models.Pattern {
	return models.Pattern{
		Type: models.PatternThresholdCrossing,
		ThresholdCrossing: &models.ThresholdCrossing{
			MetricID:  metricID,
			Direction: dir,
			Threshold: threshold,
			Date:      p.Date,
			Value:     p.Value,
		},
	}
}

// DetectHabits reports weekdays on which a metric is logged at a steady cadence.
func DetectHabits(observations []models.NormalizedObservation) []models.Pattern {
	var patterns []models.Pattern
	order, grouped := groupByMetric(observations)

	for _, metricID := range order {
		var byWeekday [7][]time.Time
		for _, e := range grouped[metricID] {
			day := e.Date.Weekday()
			byWeekday[day] = append(byWeekday[day], e.Date)
		}

		for day, dates := range byWeekday {
			if len(dates) < minHabitEntries {
				continue
			}
			consistency := habitConsistencyScore(dates)
			if consistency <= habitConsistency {
				continue
			}
			patterns = append(patterns, models.Pattern{
				Type: models.PatternHabit,
				Habit: &models.Habit{
					MetricID:    metricID,
					DayOfWeek:   time.Weekday(day),
					Frequency:   len(dates),
					Consistency: consistency,
				},
			})
		}
	}
	return patterns
}

// habitConsistencyScore is max(0, 1 - variance(gaps)/100) over the day gaps
// between sorted dates. The divisor is a fixed heuristic, independent of units.
func habitConsistencyScore(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 1.0
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, float64(models.DaysBetween(dates[i-1], dates[i])))
	}
	variance := populationVariance(gaps, mean(gaps))
	return math.Max(0, 1-variance/habitVarianceScale)
}

// DetectAnomalies flags values more than two standard deviations from the
// metric mean, for metrics with at least five numeric points.
func DetectAnomalies(observations []models.NormalizedObservation) []models.Pattern {
	var patterns []models.Pattern
	order, grouped := groupByMetric(observations)

	for _, metricID := range order {
		points := numericPoints(grouped[metricID])
		if len(points) < minAnomalyPoints {
			continue
		}

		values := pointValues(points)
		m := mean(values)
		sigma := calculateStandardDeviation(values, m)
		if sigma == 0 {
			continue
		}

		for _, p := range points {
			distance := math.Abs(p.Value - m)
			if distance <= anomalySigma*sigma {
				continue
			}
			patterns = append(patterns, models.Pattern{
				Type: models.PatternAnomaly,
				Anomaly: &models.Anomaly{
					MetricID:  metricID,
					Date:      p.Date,
					Value:     p.Value,
					Deviation: distance / sigma,
				},
			})
		}
	}
	return patterns
}

// DetectPatterns runs every detector and concatenates their results.
func DetectPatterns(observations []models.NormalizedObservation) []models.Pattern {
	patterns := make([]models.Pattern, 0)
	patterns = append(patterns, DetectStreaks(observations)...)
	patterns = append(patterns, DetectThresholdCrossings(observations)...)
	patterns = append(patterns, DetectHabits(observations)...)
	patterns = append(patterns, DetectAnomalies(observations)...)
	return patterns
}
