package models

import "time"

// CorrelationStrength buckets the magnitude of a correlation coefficient.
type CorrelationStrength string

const (
	StrengthStrong     CorrelationStrength = "strong"
	StrengthModerate   CorrelationStrength = "moderate"
	StrengthWeak       CorrelationStrength = "weak"
	StrengthNegligible CorrelationStrength = "negligible"
)

// CorrelationResult is the association between two metrics over a range.
type CorrelationResult struct {
	MetricA        string              `json:"metric_a"`
	MetricB        string              `json:"metric_b"`
	MetricAName    string              `json:"metric_a_name,omitempty"`
	MetricBName    string              `json:"metric_b_name,omitempty"`
	Coefficient    float64             `json:"coefficient"`
	SampleSize     int                 `json:"sample_size"`
	Strength       CorrelationStrength `json:"strength"`
	PValue         float64             `json:"p_value"`
	Significant    bool                `json:"significant"`
	Interpretation string              `json:"interpretation"`
}

// TrendClassification labels the direction of a fitted trend.
type TrendClassification string

const (
	TrendNoTrend          TrendClassification = "no_trend"
	TrendIncreasing       TrendClassification = "increasing"
	TrendDecreasing       TrendClassification = "decreasing"
	TrendStable           TrendClassification = "stable"
	TrendInsufficientData TrendClassification = "insufficient_data"
)

// TrendResult is a least-squares fit of a metric against time in days.
type TrendResult struct {
	Slope          float64             `json:"slope"`
	Intercept      float64             `json:"intercept"`
	RSquared       float64             `json:"r_squared"`
	Classification TrendClassification `json:"classification"`
	PeriodDays     int                 `json:"period_days"`
	DataPoints     int                 `json:"data_points"`
	Significant    bool                `json:"significant"`
	TStatistic     float64             `json:"t_statistic"`
	StandardError  float64             `json:"standard_error"`
}

// Forecast projects a significant trend forward.
type Forecast struct {
	DaysAhead      int      `json:"days_ahead"`
	PredictedValue *float64 `json:"predicted_value"`
	Confidence     float64  `json:"confidence"`
	Reliable       bool     `json:"reliable"`
}

// SeriesPatternType names a periodic pattern found in a single series.
type SeriesPatternType string

const (
	SeriesPatternWeekly   SeriesPatternType = "weekly"
	SeriesPatternMonthly  SeriesPatternType = "monthly"
	SeriesPatternSeasonal SeriesPatternType = "seasonal"
)

// SeriesPattern is a periodic pattern detected within one metric's series.
type SeriesPattern struct {
	Type     SeriesPatternType  `json:"type"`
	Averages map[string]float64 `json:"averages"`
	Spread   float64            `json:"spread"`
}

// MetricTrend bundles the trend analysis for one metric.
type MetricTrend struct {
	MetricID       string          `json:"metric_id"`
	MetricName     string          `json:"metric_name,omitempty"`
	Trend          TrendResult     `json:"trend"`
	Forecast       Forecast        `json:"forecast"`
	SeriesPatterns []SeriesPattern `json:"series_patterns,omitempty"`
	MovingAverage  []float64       `json:"moving_average,omitempty"`
}

// PatternType discriminates the Pattern variants.
type PatternType string

const (
	PatternStreak            PatternType = "streak"
	PatternThresholdCrossing PatternType = "threshold_crossing"
	PatternHabit             PatternType = "habit"
	PatternAnomaly           PatternType = "anomaly"
)

// StreakDirection describes how values moved across a streak.
type StreakDirection string

const (
	StreakImproving StreakDirection = "improving"
	StreakDeclining StreakDirection = "declining"
	StreakStable    StreakDirection = "stable"
	StreakUnknown   StreakDirection = "unknown"
)

// CrossingDirection is the side of the band a value left through.
type CrossingDirection string

const (
	CrossingUpward   CrossingDirection = "upward"
	CrossingDownward CrossingDirection = "downward"
)

// Streak is a run of temporally close observations for one metric.
type Streak struct {
	MetricID  string          `json:"metric_id"`
	Length    int             `json:"length"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Direction StreakDirection `json:"direction"`
}

// ThresholdCrossing is a value leaving the mean±σ band.
type ThresholdCrossing struct {
	MetricID  string            `json:"metric_id"`
	Direction CrossingDirection `json:"direction"`
	Threshold float64           `json:"threshold"`
	Date      time.Time         `json:"date"`
	Value     float64           `json:"value"`
}

// Habit is a weekday on which a metric is logged regularly.
type Habit struct {
	MetricID    string       `json:"metric_id"`
	DayOfWeek   time.Weekday `json:"day_of_week"`
	Frequency   int          `json:"frequency"`
	Consistency float64      `json:"consistency"`
}

// Anomaly is a value more than two standard deviations from the metric mean.
type Anomaly struct {
	MetricID  string    `json:"metric_id"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Deviation float64   `json:"deviation"`
}

// Pattern is a tagged variant: exactly one pointer matching Type is set.
type Pattern struct {
	Type              PatternType        `json:"type"`
	Streak            *Streak            `json:"streak,omitempty"`
	ThresholdCrossing *ThresholdCrossing `json:"threshold_crossing,omitempty"`
	Habit             *Habit             `json:"habit,omitempty"`
	Anomaly           *Anomaly           `json:"anomaly,omitempty"`
}

// MetricID returns the metric the pattern belongs to.
func (p Pattern) MetricID() string {
	switch p.Type {
	case PatternStreak:
		return p.Streak.MetricID
	case PatternThresholdCrossing:
		return p.ThresholdCrossing.MetricID
	case PatternHabit:
		return p.Habit.MetricID
	case PatternAnomaly:
		return p.Anomaly.MetricID
	}
	return ""
}

// RecommendationKind is the analysis a recommendation came from.
type RecommendationKind string

const (
	RecommendationCorrelation  RecommendationKind = "correlation"
	RecommendationTrend        RecommendationKind = "trend"
	RecommendationOptimization RecommendationKind = "optimization"
)

// Priority ranks recommendations.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities from high (0) to low (2).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is an actionable suggestion derived from correlations and trends.
type Recommendation struct {
	Kind             RecommendationKind `json:"kind"`
	Priority         Priority           `json:"priority"`
	Message          string             `json:"message"`
	RelatedMetricIDs []string           `json:"related_metric_ids"`
}

// InsightBundle is the combined analysis for one user and range. It is never
// mutated after generation; a refresh produces a new bundle.
type InsightBundle struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Range           DateRange           `json:"range"`
	Correlations    []CorrelationResult `json:"correlations"`
	Trends          []MetricTrend       `json:"trends"`
	Patterns        []Pattern           `json:"patterns"`
	Recommendations []Recommendation    `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}
