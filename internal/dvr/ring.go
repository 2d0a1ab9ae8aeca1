package dvr

import (
	"sort"

	"tagwatch/internal/types"
)

// idxEntry locates one retained sample inside the ring, ordered by
// (timestamp, insertion sequence) within its tag's slice.
type idxEntry struct {
	seq int64
	ts  int64
}

// ring is a circular buffer of samples keyed by insertion sequence, with a
// per-tag time index on top. The sequence counters (head/tail) only grow;
// the slot for sequence s is data[s % capacity].
//
// ring is not safe for concurrent use; the Store serializes access.
type ring struct {
	data     []types.Sample
	capacity int64
	head     int64 // next insertion sequence
	tail     int64 // oldest retained sequence

	// index maps tag id to its retained entries, sorted by (ts, seq).
	index map[string][]idxEntry
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ring{
		data:     make([]types.Sample, capacity),
		capacity: int64(capacity),
		index:    make(map[string][]idxEntry),
	}
}

func (r *ring) len() int64 {
	return r.head - r.tail
}

func (r *ring) full() bool {
	return r.head-r.tail >= r.capacity
}

// insert appends a sample, overwriting the oldest-inserted one when full.
// Returns true if an overwrite happened.
func (r *ring) insert(s types.Sample) bool {
	overwrote := false
	if r.full() {
		r.evictOldest()
		overwrote = true
	}

	seq := r.head
	r.data[seq%r.capacity] = s
	r.head++

	r.indexInsert(s.TagID, idxEntry{seq: seq, ts: s.TimestampMs})
	return overwrote
}

// indexInsert places the entry in (ts, seq) order. Arrival is near-ordered,
// so the bubble from the tail of the slice is amortized O(1).
func (r *ring) indexInsert(tagID string, e idxEntry) {
	entries := append(r.index[tagID], e)
	for i := len(entries) - 1; i > 0 && entries[i-1].ts > e.ts; i-- {
		entries[i] = entries[i-1]
		entries[i-1] = e
	}
	r.index[tagID] = entries
}

// evictOldest drops the sample with the lowest insertion sequence.
func (r *ring) evictOldest() {
	idx := r.tail % r.capacity
	tagID := r.data[idx].TagID
	r.data[idx] = types.Sample{} // Clear for GC
	r.indexRemove(tagID, r.tail)
	r.tail++
}

// evictOlderThan drops samples older than cutoffMs, walking from the
// insertion tail. The walk stops at the first young-enough sample, so a
// slightly out-of-order old sample behind a newer one survives until the
// row cap claims it.
func (r *ring) evictOlderThan(cutoffMs int64) int {
	evicted := 0
	for r.tail < r.head {
		if r.data[r.tail%r.capacity].TimestampMs >= cutoffMs {
			break
		}
		r.evictOldest()
		evicted++
	}
	return evicted
}

// indexRemove deletes the entry for seq from the tag's slice. Eviction is
// in insertion order and the slices are near insertion-ordered, so the
// entry sits at or near the front.
func (r *ring) indexRemove(tagID string, seq int64) {
	entries := r.index[tagID]
	for i, e := range entries {
		if e.seq == seq {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.index, tagID)
	} else {
		r.index[tagID] = entries
	}
}

func (r *ring) sampleAt(seq int64) types.Sample {
	return r.data[seq%r.capacity]
}

// rangeInfo computes the retained time span from the per-tag index
// endpoints: O(#tags), not O(#samples).
func (r *ring) rangeInfo() types.RangeInfo {
	if r.len() == 0 {
		return types.RangeInfo{}
	}

	var info types.RangeInfo
	info.TotalPoints = r.len()

	first := true
	for _, entries := range r.index {
		lo := entries[0].ts
		hi := entries[len(entries)-1].ts
		if first {
			info.StartTimestampMs = lo
			info.EndTimestampMs = hi
			first = false
			continue
		}
		if lo < info.StartTimestampMs {
			info.StartTimestampMs = lo
		}
		if hi > info.EndTimestampMs {
			info.EndTimestampMs = hi
		}
	}

	return info
}

// seekTag returns the most recent sample for the tag with timestamp <= tsMs.
// Exact-timestamp ties resolve to the later-inserted sample, which is the
// rightmost qualifying entry under (ts, seq) ordering.
func (r *ring) seekTag(tagID string, tsMs int64) (types.Sample, bool) {
	entries := r.index[tagID]
	if len(entries) == 0 {
		return types.Sample{}, false
	}

	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].ts > tsMs
	})
	if i == 0 {
		return types.Sample{}, false
	}

	return r.sampleAt(entries[i-1].seq), true
}

// collectNumeric gathers the tag's numeric points within [startMs, endMs],
// in time order.
func (r *ring) collectNumeric(tagID string, startMs, endMs int64) ([]int64, []float64) {
	entries := r.index[tagID]
	if len(entries) == 0 {
		return nil, nil
	}

	lo := sort.Search(len(entries), func(i int) bool {
		return entries[i].ts >= startMs
	})

	var ts []int64
	var vs []float64
	for i := lo; i < len(entries) && entries[i].ts <= endMs; i++ {
		s := r.sampleAt(entries[i].seq)
		if !s.IsNumeric() {
			continue
		}
		ts = append(ts, s.TimestampMs)
		vs = append(vs, s.Value)
	}
	return ts, vs
}

// tags returns the ids of all tags with retained samples.
func (r *ring) tags() []string {
	out := make([]string, 0, len(r.index))
	for tagID := range r.index {
		out = append(out, tagID)
	}
	return out
}

// all returns every retained sample in insertion order.
func (r *ring) all() []types.Sample {
	out := make([]types.Sample, 0, r.len())
	for seq := r.tail; seq < r.head; seq++ {
		out = append(out, r.sampleAt(seq))
	}
	return out
}
