package models

import (
	"encoding/json"
	"time"
)

// MetricType is the user-facing type of a tracked metric.
type MetricType string

const (
	MetricTypeRating   MetricType = "rating"
	MetricTypeDuration MetricType = "duration"
	MetricTypeBinary   MetricType = "binary"
	MetricTypeNumber   MetricType = "number"
	MetricTypeText     MetricType = "text"
)

// Metric is a user-defined life-tracking dimension.
type Metric struct {
	ID       string     `json:"id" db:"id"`
	UserID   string     `json:"user_id" db:"user_id"`
	Name     string     `json:"name" db:"name"`
	Type     MetricType `json:"type" db:"type"`
	Category string     `json:"category" db:"category"`
}

// ValueKind identifies which variant of a RawValue is populated.
type ValueKind string

const (
	ValueKindNone     ValueKind = ""
	ValueKindNumber   ValueKind = "value"
	ValueKindRating   ValueKind = "rating"
	ValueKindDuration ValueKind = "duration"
	ValueKindBinary   ValueKind = "binary"
	ValueKindText     ValueKind = "text"
)

// RawValue is the heterogeneous payload logged for an observation.
// Each variant is optional; a payload may carry several of them and
// the extractor decides which one wins.
type RawValue struct {
	Value    *float64 `json:"value,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Binary   *bool    `json:"binary,omitempty"`
	Text     *string  `json:"text,omitempty"`
}

// NumberValue builds a payload carrying a free number.
func NumberValue(v float64) RawValue { return RawValue{Value: &v} }

// RatingValue builds a payload carrying a rating.
func RatingValue(v float64) RawValue { return RawValue{Rating: &v} }

// DurationValue builds a payload carrying a duration.
func DurationValue(v float64) RawValue { return RawValue{Duration: &v} }

// BinaryValue builds a payload carrying a yes/no answer.
func BinaryValue(v bool) RawValue { return RawValue{Binary: &v} }

// TextValue builds a payload carrying free text.
func TextValue(v string) RawValue { return RawValue{Text: &v} }

// Kind reports the highest-priority populated variant.
func (rv RawValue) Kind() ValueKind {
	switch {
	case rv.Value != nil:
		return ValueKindNumber
	case rv.Rating != nil:
		return ValueKindRating
	case rv.Duration != nil:
		return ValueKindDuration
	case rv.Binary != nil:
		return ValueKindBinary
	case rv.Text != nil:
		return ValueKindText
	default:
		return ValueKindNone
	}
}

// UnmarshalJSON decodes the stored payload object leniently: a field whose JSON
// type does not match its variant is dropped instead of failing the row.
func (rv *RawValue) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Scalars and arrays are not a recognised shape.
		*rv = RawValue{}
		return nil
	}

	out := RawValue{}
	out.Value = decodeNumber(fields["value"])
	out.Rating = decodeNumber(fields["rating"])
	out.Duration = decodeNumber(fields["duration"])
	if raw, ok := fields["binary"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			out.Binary = &b
		}
	}
	if raw, ok := fields["text"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out.Text = &s
		}
	}

	*rv = out
	return nil
}

func decodeNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

// Observation is one logged value for a metric on a calendar date.
type Observation struct {
	ID       string    `json:"id" db:"id"`
	MetricID string    `json:"metric_id" db:"metric_id"`
	Date     time.Time `json:"date" db:"entry_date"`
	Time     *string   `json:"time,omitempty" db:"entry_time"`
	Value    RawValue  `json:"value" db:"value"`
	Tags     []string  `json:"tags,omitempty" db:"tags"`
}

// NumericPoint is a dated scalar derived from an observation.
type NumericPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// NormalizedObservation is an observation after value extraction.
// Value is nil when the payload carried no numeric scalar.
type NormalizedObservation struct {
	MetricID string
	Date     time.Time
	Value    *float64
}
