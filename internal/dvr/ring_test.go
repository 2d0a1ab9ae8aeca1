package dvr

import (
	"testing"

	"tagwatch/internal/types"
)

func numSample(tag string, ts int64, v float64) types.Sample {
	return types.NumberSample(tag, ts, v, types.QualityGood)
}

func TestRing_InsertAndLen(t *testing.T) {
	r := newRing(10)

	if r.len() != 0 {
		t.Fatalf("new ring should be empty, got %d", r.len())
	}

	for i := 0; i < 5; i++ {
		r.insert(numSample("temp", int64(1000+i), float64(i)))
	}

	if r.len() != 5 {
		t.Errorf("expected len=5, got %d", r.len())
	}
	if r.full() {
		t.Error("ring should not be full")
	}
}

func TestRing_OverwriteOldest(t *testing.T) {
	r := newRing(3)

	for i := 0; i < 5; i++ {
		r.insert(numSample("temp", int64(1000+i), float64(i)))
	}

	if r.len() != 3 {
		t.Fatalf("expected len=3 after overflow, got %d", r.len())
	}

	// Oldest-inserted samples (values 0 and 1) are gone.
	all := r.all()
	if len(all) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(all))
	}
	for i, s := range all {
		if s.Value != float64(i+2) {
			t.Errorf("sample %d: expected value %d, got %f", i, i+2, s.Value)
		}
	}
}

func TestRing_IndexFollowsEviction(t *testing.T) {
	r := newRing(2)

	r.insert(numSample("a", 1000, 1))
	r.insert(numSample("b", 1001, 2))
	r.insert(numSample("a", 1002, 3)) // evicts a@1000

	if _, ok := r.seekTag("a", 1001); ok {
		t.Error("a@1000 should be evicted")
	}
	if s, ok := r.seekTag("a", 1002); !ok || s.Value != 3 {
		t.Errorf("expected a@1002 value 3, got %v ok=%v", s, ok)
	}
	if s, ok := r.seekTag("b", 2000); !ok || s.Value != 2 {
		t.Errorf("expected b@1001 value 2, got %v ok=%v", s, ok)
	}
}

func TestRing_EvictOlderThan(t *testing.T) {
	r := newRing(10)

	for i := 0; i < 6; i++ {
		r.insert(numSample("temp", int64(1000+i*100), float64(i)))
	}

	evicted := r.evictOlderThan(1300)
	if evicted != 3 {
		t.Errorf("expected 3 evicted, got %d", evicted)
	}
	if r.len() != 3 {
		t.Errorf("expected len=3, got %d", r.len())
	}

	info := r.rangeInfo()
	if info.StartTimestampMs != 1300 {
		t.Errorf("expected start 1300, got %d", info.StartTimestampMs)
	}
}

func TestRing_EvictOlderThanStopsAtYoungSample(t *testing.T) {
	r := newRing(10)

	// Out-of-order: a young sample arrives before an old one.
	r.insert(numSample("temp", 2000, 1))
	r.insert(numSample("temp", 1000, 2))

	// The walk is in insertion order, so the old sample behind the young
	// one survives the age trim.
	if evicted := r.evictOlderThan(1500); evicted != 0 {
		t.Errorf("expected 0 evicted, got %d", evicted)
	}
	if r.len() != 2 {
		t.Errorf("expected len=2, got %d", r.len())
	}
}

func TestRing_SeekTieBreak(t *testing.T) {
	r := newRing(10)

	r.insert(numSample("temp", 1000, 1))
	r.insert(numSample("temp", 1000, 2)) // same timestamp, later insertion

	s, ok := r.seekTag("temp", 1000)
	if !ok {
		t.Fatal("expected a sample")
	}
	if s.Value != 2 {
		t.Errorf("later-inserted sample should win the tie, got value %f", s.Value)
	}
}

func TestRing_OutOfOrderIndex(t *testing.T) {
	r := newRing(10)

	r.insert(numSample("temp", 1000, 1))
	r.insert(numSample("temp", 3000, 3))
	r.insert(numSample("temp", 2000, 2)) // late arrival

	s, ok := r.seekTag("temp", 2500)
	if !ok || s.Value != 2 {
		t.Errorf("expected the late-arrived sample at 2000, got %v ok=%v", s, ok)
	}

	ts, vs := r.collectNumeric("temp", 0, 4000)
	if len(ts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(ts))
	}
	for i := 1; i < len(ts); i++ {
		if ts[i-1] > ts[i] {
			t.Errorf("points not time-ordered: %v", ts)
		}
	}
	if vs[0] != 1 || vs[1] != 2 || vs[2] != 3 {
		t.Errorf("unexpected values: %v", vs)
	}
}

func TestRing_CollectNumericSkipsNonNumeric(t *testing.T) {
	r := newRing(10)

	r.insert(numSample("temp", 1000, 1))
	r.insert(types.TextSample("temp", 1100, "RUNNING", types.QualityGood))
	r.insert(types.BoolSample("temp", 1200, true, types.QualityGood))
	r.insert(numSample("temp", 1300, 2))

	ts, vs := r.collectNumeric("temp", 0, 2000)
	if len(ts) != 2 || vs[0] != 1 || vs[1] != 2 {
		t.Errorf("expected only numeric points, got ts=%v vs=%v", ts, vs)
	}
}

func TestRing_RangeInfoEmpty(t *testing.T) {
	r := newRing(4)
	if info := r.rangeInfo(); !info.Empty() {
		t.Errorf("expected empty sentinel, got %+v", info)
	}
}
