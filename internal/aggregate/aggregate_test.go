package aggregate

import (
	"testing"
)

func TestManager_Summary(t *testing.T) {
	m := NewManager(DefaultAccuracy)

	for i := 1; i <= 100; i++ {
		m.Observe("temp", float64(i), int64(1000+i))
	}

	s, ok := m.Summary("temp")
	if !ok {
		t.Fatal("expected a summary")
	}

	if s.Count != 100 {
		t.Errorf("expected count 100, got %d", s.Count)
	}
	if s.Min != 1 || s.Max != 100 {
		t.Errorf("expected min=1 max=100, got min=%f max=%f", s.Min, s.Max)
	}
	if s.Avg != 50.5 {
		t.Errorf("expected avg 50.5, got %f", s.Avg)
	}
	if s.FirstTs != 1001 || s.LastTs != 1100 {
		t.Errorf("unexpected timestamps: first=%d last=%d", s.FirstTs, s.LastTs)
	}

	// DDSketch is approximate (1% relative accuracy); check ordering and
	// ballpark rather than exact values.
	if !(s.P50 <= s.P95 && s.P95 <= s.P99) {
		t.Errorf("percentiles out of order: p50=%f p95=%f p99=%f", s.P50, s.P95, s.P99)
	}
	if s.P50 < 45 || s.P50 > 56 {
		t.Errorf("p50 implausible: %f", s.P50)
	}
	if s.P99 < 90 || s.P99 > 101 {
		t.Errorf("p99 implausible: %f", s.P99)
	}
}

func TestManager_UnknownTag(t *testing.T) {
	m := NewManager(DefaultAccuracy)
	if _, ok := m.Summary("nope"); ok {
		t.Error("expected no summary for unobserved tag")
	}
}

func TestManager_Reset(t *testing.T) {
	m := NewManager(DefaultAccuracy)

	m.Observe("temp", 1, 1000)
	m.Reset("temp")

	if _, ok := m.Summary("temp"); ok {
		t.Error("expected summary gone after reset")
	}
}

func TestManager_Tags(t *testing.T) {
	m := NewManager(DefaultAccuracy)

	m.Observe("a", 1, 1000)
	m.Observe("b", 2, 1000)
	m.Observe("a", 3, 1001)

	tags := m.Tags()
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %v", tags)
	}
}
