// Package aggregate maintains running per-tag statistics over the ingested
// stream, with DDSketch-backed percentiles.
package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// DefaultAccuracy is the DDSketch relative accuracy (1% error).
const DefaultAccuracy = 0.01

// TagSummary is a point-in-time view of one tag's statistics.
type TagSummary struct {
	TagID   string
	Count   int64
	Sum     float64
	Min     float64
	Max     float64
	Avg     float64
	P50     float64
	P95     float64
	P99     float64
	FirstTs int64
	LastTs  int64
}

// tagAggregate holds running statistics for a single tag.
type tagAggregate struct {
	count   int64
	sum     float64
	min     float64
	max     float64
	firstTs int64
	lastTs  int64
	sketch  *ddsketch.DDSketch
}

func newTagAggregate(accuracy float64) *tagAggregate {
	agg := &tagAggregate{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	// DDSketch construction only fails on a nonsensical accuracy; fall
	// back to count/min/max/avg without percentiles in that case.
	if sketch, err := ddsketch.NewDefaultDDSketch(accuracy); err == nil {
		agg.sketch = sketch
	}
	return agg
}

func (a *tagAggregate) add(value float64, timestampMs int64) {
	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	if a.firstTs == 0 || timestampMs < a.firstTs {
		a.firstTs = timestampMs
	}
	if timestampMs > a.lastTs {
		a.lastTs = timestampMs
	}

	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

func (a *tagAggregate) summary(tagID string) TagSummary {
	s := TagSummary{
		TagID:   tagID,
		Count:   a.count,
		Sum:     a.sum,
		FirstTs: a.firstTs,
		LastTs:  a.lastTs,
	}

	if a.count > 0 {
		s.Min = a.min
		s.Max = a.max
		s.Avg = a.sum / float64(a.count)
	}

	if a.sketch != nil && a.count > 0 {
		s.P50, _ = a.sketch.GetValueAtQuantile(0.50)
		s.P95, _ = a.sketch.GetValueAtQuantile(0.95)
		s.P99, _ = a.sketch.GetValueAtQuantile(0.99)
	}

	return s
}

// Manager keys running aggregates by tag id.
// These are lifetime statistics over everything observed since startup,
// not windowed over the DVR's retained samples.
type Manager struct {
	mu       sync.Mutex
	accuracy float64
	tags     map[string]*tagAggregate
}

// NewManager creates a Manager with the given DDSketch relative accuracy.
func NewManager(accuracy float64) *Manager {
	if accuracy <= 0 || accuracy >= 1 {
		accuracy = DefaultAccuracy
	}
	return &Manager{
		accuracy: accuracy,
		tags:     make(map[string]*tagAggregate),
	}
}

// Observe records a numeric sample for the tag.
func (m *Manager) Observe(tagID string, value float64, timestampMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.tags[tagID]
	if agg == nil {
		agg = newTagAggregate(m.accuracy)
		m.tags[tagID] = agg
	}
	agg.add(value, timestampMs)
}

// Summary returns the tag's statistics, or false if nothing was observed.
func (m *Manager) Summary(tagID string) (TagSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.tags[tagID]
	if agg == nil {
		return TagSummary{}, false
	}
	return agg.summary(tagID), true
}

// Reset discards the tag's statistics.
func (m *Manager) Reset(tagID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, tagID)
}

// Tags returns the ids of all observed tags.
func (m *Manager) Tags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.tags))
	for tagID := range m.tags {
		out = append(out, tagID)
	}
	return out
}
