package services

import (
	"fmt"
	"sort"

	"github.com/irfndi/lifemetrics/internal/models"
)

const (
	// MaxRecommendations caps the recommendation list of a bundle.
	MaxRecommendations = 10

	recommendationCorrelation = 0.5
	optimizationCorrelation   = 0.4
)

// GenerateRecommendations derives suggestions from already-computed
// correlations and trends. Patterns are not consulted.
//
// The list is stable-sorted by priority (high first) before the cap is
// applied, so ties keep generation order.
func GenerateRecommendations(correlations []models.CorrelationResult, trends []models.MetricTrend) []models.Recommendation {
	recommendations := make([]models.Recommendation, 0)
	recommendations = append(recommendations, correlationRecommendations(correlations)...)
	recommendations = append(recommendations, trendRecommendations(trends)...)
	recommendations = append(recommendations, optimizationRecommendations(correlations, trends)...)

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Priority.Rank() < recommendations[j].Priority.Rank()
	})

	if len(recommendations) > MaxRecommendations {
		recommendations = recommendations[:MaxRecommendations]
	}
	return recommendations
}

func correlationRecommendations(correlations []models.CorrelationResult) []models.Recommendation {
	var out []models.Recommendation
	for _, c := range correlations {
		if c.Coefficient > recommendationCorrelation {
			out = append(out, models.Recommendation{
				Kind:     models.RecommendationCorrelation,
				Priority: models.PriorityHigh,
				Message: fmt.Sprintf("Improving %s may help improve %s; they tend to move together (r = %.2f).",
					nameOrID(c.MetricAName, c.MetricA), nameOrID(c.MetricBName, c.MetricB), c.Coefficient),
				RelatedMetricIDs: []string{c.MetricA, c.MetricB},
			})
		} else if c.Coefficient < -recommendationCorrelation {
			out = append(out, models.Recommendation{
				Kind:     models.RecommendationCorrelation,
				Priority: models.PriorityMedium,
				Message: fmt.Sprintf("Try to balance %s and %s; when one goes up the other tends to drop (r = %.2f).",
					nameOrID(c.MetricAName, c.MetricA), nameOrID(c.MetricBName, c.MetricB), c.Coefficient),
				RelatedMetricIDs: []string{c.MetricA, c.MetricB},
			})
		}
	}
	return out
}

func trendRecommendations(trends []models.MetricTrend) []models.Recommendation {
	var out []models.Recommendation
	for _, mt := range trends {
		if !mt.Trend.Significant {
			continue
		}
		name := nameOrID(mt.MetricName, mt.MetricID)

		var priority models.Priority
		var message string
		switch mt.Trend.Classification {
		case models.TrendIncreasing:
			priority = models.PriorityMedium
			message = fmt.Sprintf("%s has been rising steadily over the last %d days. Keep doing what works.",
				name, mt.Trend.PeriodDays)
		case models.TrendDecreasing:
			priority = models.PriorityHigh
			message = fmt.Sprintf("%s has been declining over the last %d days. Look at what changed recently.",
				name, mt.Trend.PeriodDays)
		case models.TrendStable:
			priority = models.PriorityLow
			message = fmt.Sprintf("%s is holding steady. Consider setting a new goal for it.", name)
		default:
			continue
		}

		out = append(out, models.Recommendation{
			Kind:             models.RecommendationTrend,
			Priority:         priority,
			Message:          message,
			RelatedMetricIDs: []string{mt.MetricID},
		})
	}
	return out
}

// optimizationRecommendations pairs significant rising metrics with their
// positive correlations (leverage) and significant falling metrics with theirs
// (remediation).
func optimizationRecommendations(correlations []models.CorrelationResult, trends []models.MetricTrend) []models.Recommendation {
	var out []models.Recommendation
	for _, mt := range trends {
		if !mt.Trend.Significant {
			continue
		}
		rising := mt.Trend.Classification == models.TrendIncreasing
		falling := mt.Trend.Classification == models.TrendDecreasing
		if !rising && !falling {
			continue
		}

		name := nameOrID(mt.MetricName, mt.MetricID)
		for _, c := range correlations {
			if c.Coefficient <= optimizationCorrelation {
				continue
			}
			var partnerID, partnerName string
			switch mt.MetricID {
			case c.MetricA:
				partnerID, partnerName = c.MetricB, nameOrID(c.MetricBName, c.MetricB)
			case c.MetricB:
				partnerID, partnerName = c.MetricA, nameOrID(c.MetricAName, c.MetricA)
			default:
				continue
			}

			if rising {
				out = append(out, models.Recommendation{
					Kind:     models.RecommendationOptimization,
					Priority: models.PriorityMedium,
					Message: fmt.Sprintf("%s is improving and moves with %s. Lean on that momentum to lift %s as well.",
						name, partnerName, partnerName),
					RelatedMetricIDs: []string{mt.MetricID, partnerID},
				})
			} else {
				out = append(out, models.Recommendation{
					Kind:     models.RecommendationOptimization,
					Priority: models.PriorityHigh,
					Message: fmt.Sprintf("%s is declining. Working on %s, which moves with it, may help turn it around.",
						name, partnerName),
					RelatedMetricIDs: []string{mt.MetricID, partnerID},
				})
			}
		}
	}
	return out
}

func nameOrID(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
