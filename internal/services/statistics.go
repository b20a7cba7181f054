package services

import "math"

// mean returns the arithmetic mean, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationVariance divides by n, not n-1.
func populationVariance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return variance / float64(len(values))
}

// calculateStandardDeviation returns the population standard deviation around mean.
func calculateStandardDeviation(values []float64, m float64) float64 {
	return math.Sqrt(populationVariance(values, m))
}
