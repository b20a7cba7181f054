package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/lifemetrics/internal/models"
)

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawValue
		expected float64
		ok       bool
	}{
		{"number", models.NumberValue(42.5), 42.5, true},
		{"rating", models.RatingValue(7), 7, true},
		{"duration", models.DurationValue(480), 480, true},
		{"binary true", models.BinaryValue(true), 1, true},
		{"binary false", models.BinaryValue(false), 0, true},
		{"text", models.TextValue("felt great"), 0, false},
		{"empty", models.RawValue{}, 0, false},
		{"value wins over rating", models.RawValue{Value: floatPtr(1), Rating: floatPtr(9)}, 1, true},
		{"rating wins over duration", models.RawValue{Rating: floatPtr(3), Duration: floatPtr(60)}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ExtractValue(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestNormalizeObservations(t *testing.T) {
	evening := time.Date(2024, 5, 6, 21, 30, 0, 0, time.UTC)
	observations := []models.Observation{
		{ID: "1", MetricID: "mood", Date: evening, Value: models.RatingValue(8)},
		{ID: "2", MetricID: "journal", Date: evening, Value: models.TextValue("ok")},
	}

	normalized := NormalizeObservations(observations)

	require.Len(t, normalized, 2)
	assert.Equal(t, monday, normalized[0].Date)
	require.NotNil(t, normalized[0].Value)
	assert.Equal(t, 8.0, *normalized[0].Value)
	assert.Equal(t, "journal", normalized[1].MetricID)
	assert.Nil(t, normalized[1].Value)
}

func TestValuesByMetric_DropsNonNumeric(t *testing.T) {
	observations := append(dailyPoints("mood", 1, 2, 3), models.NormalizedObservation{MetricID: "mood", Date: day(3)})

	grouped := valuesByMetric(observations)

	assert.Equal(t, []float64{1, 2, 3}, grouped["mood"])
	assert.Equal(t, []models.NumericPoint{{Date: day(0), Value: 1}, {Date: day(1), Value: 2}, {Date: day(2), Value: 3}},
		numericSeries(observations, "mood"))
}
