package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/lifemetrics/internal/utils"
)

func TestRawValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind ValueKind
	}{
		{"number", `{"value": 72.5}`, ValueKindNumber},
		{"rating", `{"rating": 4}`, ValueKindRating},
		{"duration", `{"duration": 480}`, ValueKindDuration},
		{"binary", `{"binary": true}`, ValueKindBinary},
		{"text", `{"text": "felt great"}`, ValueKindText},
		{"value wins over rating", `{"rating": 3, "value": 9}`, ValueKindNumber},
		{"non numeric value falls through", `{"value": "high", "rating": 2}`, ValueKindRating},
		{"empty object", `{}`, ValueKindNone},
		{"scalar payload", `42`, ValueKindNone},
		{"array payload", `[1,2,3]`, ValueKindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rv RawValue
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &rv))
			assert.Equal(t, tt.wantKind, rv.Kind())
		})
	}
}

func TestRawValue_MarshalRoundTripKeepsVariant(t *testing.T) {
	data, err := json.Marshal(BinaryValue(false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"binary": false}`, string(data))

	var rv RawValue
	require.NoError(t, json.Unmarshal(data, &rv))
	require.NotNil(t, rv.Binary)
	assert.False(t, *rv.Binary)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, 30, r.Days())
	assert.True(t, r.Contains(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDateRange_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		field string
	}{
		{"end before start", "2024-03-10", "2024-03-01", "end"},
		{"bad start", "2024-3-1", "2024-03-01", "start"},
		{"bad end", "2024-03-01", "tomorrow", "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateRange(tt.start, tt.end)
			require.Error(t, err)
			var ve *utils.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestTrailingDays(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 4, 5, 0, time.UTC)
	r := TrailingDays(now, 30)

	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, 30, r.Days())
}

func TestPattern_MetricID(t *testing.T) {
	p := Pattern{Type: PatternAnomaly, Anomaly: &Anomaly{MetricID: "sleep"}}
	assert.Equal(t, "sleep", p.MetricID())
	assert.Equal(t, "", Pattern{}.MetricID())
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}
