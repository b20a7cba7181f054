package services

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/irfndi/lifemetrics/internal/models"
)

const (
	minTrendPoints         = 3
	minSeriesPatternPoints = 7
	minWeekdaysForPattern  = 3
	weeklySpreadThreshold  = 0.5
	movingAveragePeriod    = 7

	noTrendRSquared      = 0.1
	trendSlopeThreshold  = 0.1
	significantTStat     = 2.0
	significantRSquared  = 0.3
	reliableForecastR2   = 0.5
	guardedStandardError = 1.0
)

// CalculateTrend fits value = intercept + slope*day by ordinary least squares,
// where day is the offset in days from the first point. The series must be in
// date order.
func CalculateTrend(series []models.NumericPoint) models.TrendResult {
	n := len(series)
	if n < minTrendPoints {
		return models.TrendResult{
			Classification: models.TrendInsufficientData,
			DataPoints:     n,
		}
	}

	first := series[0].Date
	xs := make([]float64, n)
	ys := make([]float64, n)
	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range series {
		x := float64(models.DaysBetween(first, p.Date))
		xs[i], ys[i] = x, p.Value
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumX2 += x * x
	}

	fn := float64(n)
	meanY := sumY / fn

	var slope, intercept float64
	denominator := fn*sumX2 - sumX*sumX
	if denominator == 0 {
		// Every point shares one date.
		slope, intercept = 0, meanY
	} else {
		slope = (fn*sumXY - sumX*sumY) / denominator
		intercept = (sumY - slope*sumX) / fn
	}

	var ssRes, ssTot float64
	for i := range xs {
		predicted := intercept + slope*xs[i]
		ssRes += (ys[i] - predicted) * (ys[i] - predicted)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}

	rSquared := 0.0
	if ssTot != 0 {
		rSquared = math.Max(0, math.Min(1, 1-ssRes/ssTot))
	}

	return models.TrendResult{
		Slope:          slope,
		Intercept:      intercept,
		RSquared:       rSquared,
		Classification: classifyTrend(slope, rSquared),
		PeriodDays:     models.DaysBetween(first, series[n-1].Date),
		DataPoints:     n,
	}
}

func classifyTrend(slope, rSquared float64) models.TrendClassification {
	switch {
	case rSquared < noTrendRSquared:
		return models.TrendNoTrend
	case slope > trendSlopeThreshold:
		return models.TrendIncreasing
	case slope < -trendSlopeThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// AssessSignificance returns a copy of tr with the standard error, t-statistic
// and significance flag filled in.
//
// The standard error is guarded to 1.0 when R² reaches 1, where the closed form
// collapses to zero. An exact, non-flat fit over three or more points is
// significant regardless of the guarded t-statistic.
func AssessSignificance(tr models.TrendResult) models.TrendResult {
	out := tr
	if tr.DataPoints < minTrendPoints {
		out.Significant = false
		out.StandardError = 0
		out.TStatistic = 0
		return out
	}

	n := float64(tr.DataPoints)
	exactFit := tr.RSquared >= 1

	se := guardedStandardError
	if !exactFit {
		se = math.Sqrt((1 - tr.RSquared) / (n - 2))
	}

	out.StandardError = se
	out.TStatistic = math.Abs(tr.Slope / se)
	out.Significant = (out.TStatistic > significantTStat && tr.RSquared > significantRSquared) ||
		(exactFit && tr.Slope != 0)
	return out
}

// DetectSeriesPatterns looks for periodic structure in one metric's series.
func DetectSeriesPatterns(series []models.NumericPoint) []models.SeriesPattern {
	if len(series) < minSeriesPatternPoints {
		return nil
	}

	var patterns []models.SeriesPattern
	if weekly, ok := detectWeeklyPattern(series); ok {
		patterns = append(patterns, weekly)
	}
	patterns = append(patterns, detectMonthlyPattern(series)...)
	patterns = append(patterns, detectSeasonalPattern(series)...)
	return patterns
}

func detectWeeklyPattern(series []models.NumericPoint) (models.SeriesPattern, bool) {
	var byWeekday [7][]float64
	represented := 0
	for _, p := range series {
		day := p.Date.Weekday()
		if len(byWeekday[day]) == 0 {
			represented++
		}
		byWeekday[day] = append(byWeekday[day], p.Value)
	}
	if represented < minWeekdaysForPattern {
		return models.SeriesPattern{}, false
	}

	// Walk weekdays in calendar order so the spread is bit-for-bit repeatable.
	averages := make(map[string]float64, represented)
	means := make([]float64, 0, represented)
	for day, values := range byWeekday {
		if len(values) == 0 {
			continue
		}
		m := mean(values)
		averages[time.Weekday(day).String()] = m
		means = append(means, m)
	}

	spread := calculateStandardDeviation(means, mean(means))
	if spread <= weeklySpreadThreshold {
		return models.SeriesPattern{}, false
	}

	return models.SeriesPattern{
		Type:     models.SeriesPatternWeekly,
		Averages: averages,
		Spread:   spread,
	}, true
}

// detectMonthlyPattern is not implemented and always reports nothing.
func detectMonthlyPattern(_ []models.NumericPoint) []models.SeriesPattern {
	return nil
}

// detectSeasonalPattern is not implemented and always reports nothing.
func detectSeasonalPattern(_ []models.NumericPoint) []models.SeriesPattern {
	return nil
}

// ForecastTrend projects tr daysAhead past the end of its period. Only
// significant trends produce a prediction.
func ForecastTrend(tr models.TrendResult, daysAhead int) models.Forecast {
	if !tr.Significant {
		return models.Forecast{DaysAhead: daysAhead, PredictedValue: nil, Confidence: 0, Reliable: false}
	}

	predicted := tr.Intercept + tr.Slope*float64(tr.PeriodDays+daysAhead)
	return models.Forecast{
		DaysAhead:      daysAhead,
		PredictedValue: &predicted,
		Confidence:     tr.RSquared,
		Reliable:       tr.RSquared > reliableForecastR2,
	}
}

// MovingAverage smooths the series with a simple moving average. Series shorter
// than the period have nothing to smooth.
func MovingAverage(series []models.NumericPoint, period int) []float64 {
	if period <= 0 || len(series) < period {
		return nil
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}
