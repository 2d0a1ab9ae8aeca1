package types

import "time"

// ValueKind indicates the type of a sample value.
type ValueKind int

const (
	// KindNumber is a scalar numeric reading (e.g., temperature, pressure).
	KindNumber ValueKind = iota
	// KindBool is a binary reading (e.g., valve open/closed).
	KindBool
	// KindText is a string reading (e.g., machine state name).
	KindText
)

// String returns a human-readable representation of the ValueKind.
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Quality flags the trustworthiness of a sample as reported by the source.
type Quality string

const (
	QualityGood      Quality = "good"
	QualityBad       Quality = "bad"
	QualityUncertain Quality = "uncertain"
)

// Sample represents a single timestamped reading for a tag.
// This is the primary data unit flowing through the historical store.
// Samples are append-only: they may be evicted, never mutated.
type Sample struct {
	// TagID identifies the field-device data point this reading belongs to.
	TagID string

	// TimestampMs is the acquisition time in Unix milliseconds.
	TimestampMs int64

	// Kind indicates which value field carries the reading.
	Kind ValueKind

	// Value holds the reading for KindNumber samples.
	Value float64

	// BoolValue holds the reading for KindBool samples.
	BoolValue bool

	// TextValue holds the reading for KindText samples.
	TextValue string

	// Quality is the source-reported validity flag.
	Quality Quality
}

// NumberSample builds a numeric sample.
func NumberSample(tagID string, tsMs int64, value float64, q Quality) Sample {
	return Sample{TagID: tagID, TimestampMs: tsMs, Kind: KindNumber, Value: value, Quality: q}
}

// BoolSample builds a boolean sample.
func BoolSample(tagID string, tsMs int64, value bool, q Quality) Sample {
	return Sample{TagID: tagID, TimestampMs: tsMs, Kind: KindBool, BoolValue: value, Quality: q}
}

// TextSample builds a text sample.
func TextSample(tagID string, tsMs int64, value string, q Quality) Sample {
	return Sample{TagID: tagID, TimestampMs: tsMs, Kind: KindText, TextValue: value, Quality: q}
}

// IsNumeric reports whether the sample carries a numeric value.
// Sparkline extraction and threshold evaluation are numeric-only.
func (s *Sample) IsNumeric() bool {
	return s.Kind == KindNumber
}

// TimestampTime returns the timestamp as a time.Time.
func (s *Sample) TimestampTime() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// RangeInfo describes the time span covered by the historical store.
// The zero value is the "no data" sentinel.
type RangeInfo struct {
	StartTimestampMs int64
	EndTimestampMs   int64
	TotalPoints      int64
}

// Empty reports whether the range describes an empty store.
func (r RangeInfo) Empty() bool {
	return r.TotalPoints == 0
}

// Series is a downsampled (timestamp, value) sequence for one tag.
// Timestamps and Values are parallel slices of equal length.
type Series struct {
	Timestamps []int64
	Values     []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.Timestamps)
}
