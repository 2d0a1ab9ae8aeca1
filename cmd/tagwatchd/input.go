package main

import (
	"encoding/json"
	"fmt"

	"tagwatch/internal/types"
)

// inputLine is one NDJSON line from the feed. A line is either a sample
// (tag + one value field) or a connection-status change (connection +
// status).
type inputLine struct {
	Tag     string   `json:"tag,omitempty"`
	Ts      int64    `json:"ts,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Bool    *bool    `json:"bool,omitempty"`
	Text    *string  `json:"text,omitempty"`
	Quality string   `json:"quality,omitempty"`

	Connection string `json:"connection,omitempty"`
	Status     string `json:"status,omitempty"`
}

// decodeLine parses one feed line.
func decodeLine(data []byte) (inputLine, error) {
	var line inputLine
	if err := json.Unmarshal(data, &line); err != nil {
		return inputLine{}, fmt.Errorf("parse line: %w", err)
	}

	if line.Connection != "" {
		if line.Status == "" {
			return inputLine{}, fmt.Errorf("connection line missing status")
		}
		return line, nil
	}

	if line.Tag == "" {
		return inputLine{}, fmt.Errorf("line missing tag")
	}
	if line.Value == nil && line.Bool == nil && line.Text == nil {
		return inputLine{}, fmt.Errorf("tag %s: line missing value", line.Tag)
	}
	return line, nil
}

// isConnection reports whether the line is a connection-status change.
func (l *inputLine) isConnection() bool {
	return l.Connection != ""
}

// sample converts a tag line to a Sample, defaulting the timestamp to
// nowMs and the quality to good.
func (l *inputLine) sample(nowMs int64) types.Sample {
	ts := l.Ts
	if ts <= 0 {
		ts = nowMs
	}

	quality := types.Quality(l.Quality)
	if quality == "" {
		quality = types.QualityGood
	}

	switch {
	case l.Value != nil:
		return types.NumberSample(l.Tag, ts, *l.Value, quality)
	case l.Bool != nil:
		return types.BoolSample(l.Tag, ts, *l.Bool, quality)
	default:
		return types.TextSample(l.Tag, ts, *l.Text, quality)
	}
}
