package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irfndi/lifemetrics/internal/models"
)

func TestPearsonCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		xs, ys   []float64
		expected float64
	}{
		{"identical sequences", []float64{1, 3, 2, 5, 4}, []float64{1, 3, 2, 5, 4}, 1.0},
		{"negated sequence", []float64{1, 3, 2, 5, 4}, []float64{-1, -3, -2, -5, -4}, -1.0},
		{"scaled and shifted", []float64{5, 6, 7, 8, 9}, []float64{10, 12, 14, 16, 18}, 1.0},
		{"constant side", []float64{4, 4, 4, 4}, []float64{1, 2, 3, 4}, 0.0},
		{"too few pairs", []float64{1, 2}, []float64{2, 4}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PearsonCorrelation(tt.xs, tt.ys), 1e-3)
		})
	}
}

func TestPearsonCorrelation_ConstantIsExactlyZero(t *testing.T) {
	assert.Equal(t, 0.0, PearsonCorrelation([]float64{7, 7, 7, 7, 7}, []float64{1, 9, 2, 8, 3}))
	assert.Equal(t, 0.0, PearsonCorrelation([]float64{1, 9, 2, 8, 3}, []float64{7, 7, 7, 7, 7}))
}

func TestPearsonCorrelation_TruncatesToSharedPrefix(t *testing.T) {
	// The trailing 100 in xs has no partner and must be ignored.
	r := PearsonCorrelation([]float64{1, 2, 3, 100}, []float64{2, 4, 6})
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestPearsonCorrelation_StaysWithinBounds(t *testing.T) {
	xs := []float64{0.1, 0.2, 0.30000000000000004, 0.4, 0.5}
	r := PearsonCorrelation(xs, xs)
	assert.LessOrEqual(t, r, 1.0)
	assert.GreaterOrEqual(t, r, -1.0)
}

func TestSpearmanCorrelation(t *testing.T) {
	// Monotonic but not linear.
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{1, 4, 9, 16, 100}
	assert.InDelta(t, 1.0, SpearmanCorrelation(xs, ys), 1e-9)
	assert.Less(t, PearsonCorrelation(xs, ys), 0.99)

	assert.InDelta(t, -1.0, SpearmanCorrelation(xs, []float64{50, 40, 30, 2, 1}), 1e-9)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 2, 4}, rank([]float64{5, 1, 1, 9}))
}

func TestCorrelationSignificance(t *testing.T) {
	t.Run("below sample floor", func(t *testing.T) {
		sig := CorrelationSignificance(0.99, 2)
		assert.False(t, sig.Significant)
		assert.Equal(t, 1.0, sig.PValue)
	})

	t.Run("perfect correlation", func(t *testing.T) {
		sig := CorrelationSignificance(1.0, 5)
		assert.True(t, sig.Significant)
		assert.Equal(t, 0.01, sig.PValue)
		assert.Greater(t, sig.TStatistic, 0.0)
	})

	t.Run("perfect negative correlation", func(t *testing.T) {
		sig := CorrelationSignificance(-1.0, 5)
		assert.True(t, sig.Significant)
		assert.Less(t, sig.TStatistic, 0.0)
	})

	t.Run("weak correlation over few samples", func(t *testing.T) {
		// t = 0.3 * sqrt(3 / 0.91) ~= 0.54
		sig := CorrelationSignificance(0.3, 5)
		assert.False(t, sig.Significant)
		assert.Equal(t, 0.20, sig.PValue)
		assert.InDelta(t, 0.5447, sig.TStatistic, 1e-3)
	})

	t.Run("moderate correlation over many samples", func(t *testing.T) {
		// t = 0.5 * sqrt(18 / 0.75) ~= 2.449, p lands on the 0.05 bucket
		sig := CorrelationSignificance(0.5, 20)
		assert.False(t, sig.Significant)
		assert.Equal(t, 0.05, sig.PValue)
	})

	t.Run("strong correlation over many samples", func(t *testing.T) {
		// t = 0.7 * sqrt(18 / 0.51) ~= 4.16
		sig := CorrelationSignificance(0.7, 20)
		assert.True(t, sig.Significant)
		assert.Equal(t, 0.01, sig.PValue)
	})
}

func TestCorrelationStrength(t *testing.T) {
	tests := []struct {
		r        float64
		expected models.CorrelationStrength
	}{
		{0.75, models.StrengthStrong},
		{0.7, models.StrengthStrong},
		{-0.9, models.StrengthStrong},
		{0.5, models.StrengthModerate},
		{0.4, models.StrengthModerate},
		{0.3, models.StrengthWeak},
		{0.2, models.StrengthWeak},
		{-0.25, models.StrengthWeak},
		{0.1, models.StrengthNegligible},
		{0.0, models.StrengthNegligible},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CorrelationStrength(tt.r), "r=%v", tt.r)
	}
}

func TestInterpretCorrelation(t *testing.T) {
	assert.Equal(t,
		"Strong positive correlation between Sleep and Mood (r = 0.812): when Sleep goes up, Mood tends to rise.",
		InterpretCorrelation(0.8123, "Sleep", "Mood"))
	assert.Equal(t,
		"Moderate negative correlation between Caffeine and Sleep (r = -0.450): when Caffeine goes up, Sleep tends to fall.",
		InterpretCorrelation(-0.45, "Caffeine", "Sleep"))
	assert.Equal(t,
		"There is no meaningful relationship between Steps and Mood (r = 0.100).",
		InterpretCorrelation(0.1, "Steps", "Mood"))
}

func TestNewCorrelationResult_FallsBackToIDs(t *testing.T) {
	result := newCorrelationResult("m1", "m2", "", "Mood", 0.9, 6)

	assert.Equal(t, "m1", result.MetricA)
	assert.Equal(t, "", result.MetricAName)
	assert.Equal(t, 6, result.SampleSize)
	assert.Equal(t, models.StrengthStrong, result.Strength)
	assert.Contains(t, result.Interpretation, "between m1 and Mood")
}
