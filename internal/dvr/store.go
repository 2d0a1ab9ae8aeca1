// Package dvr implements the historical store: a bounded recent-history
// buffer of tag samples supporting point-in-time snapshot (seek), range,
// and shape-preserving downsampled series queries.
package dvr

import (
	"sync"
	"sync/atomic"
	"time"

	"tagwatch/internal/errors"
	"tagwatch/internal/types"
)

// Options configures a Store.
type Options struct {
	// MaxRows is the hard bound on retained samples. The ring overwrites
	// the oldest-inserted sample once exceeded.
	MaxRows int

	// Retention is the maximum sample age, enforced by a tail trim on
	// every insert. Zero disables age-based eviction.
	Retention time.Duration
}

// Store is the DVR: a size/time-bounded append-only log of samples.
//
// Eviction policy: the insertion-sequence row cap is authoritative; age
// retention runs as an opportunistic tail trim at insert time. Under heavy
// multi-tag load a sample can be overwritten before its retention window
// expires; a sample never outlives the row cap.
//
// All operations are safe for concurrent use. Writes are serialized behind
// the store lock; queries take a read lock so they never observe a
// half-written sample.
type Store struct {
	mu        sync.RWMutex
	ring      *ring
	retention time.Duration

	// now is the wall clock; replaceable in tests.
	now func() time.Time

	// Statistics
	inserted    atomic.Int64
	rejected    atomic.Int64
	evictedRows atomic.Int64
	evictedAge  atomic.Int64
}

// New creates a Store with the given bounds.
func New(opts Options) *Store {
	return &Store{
		ring:      newRing(opts.MaxRows),
		retention: opts.Retention,
		now:       time.Now,
	}
}

// Insert appends a sample. It fails only on malformed input; eviction under
// capacity or age pressure is not an error.
func (s *Store) Insert(sample types.Sample) error {
	if sample.TagID == "" {
		s.rejected.Add(1)
		return errors.NewMissingField("tag_id")
	}
	if sample.TimestampMs <= 0 {
		s.rejected.Add(1)
		return errors.NewMissingField("timestamp")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retention > 0 {
		cutoff := s.now().Add(-s.retention).UnixMilli()
		s.evictedAge.Add(int64(s.ring.evictOlderThan(cutoff)))
	}

	if s.ring.insert(sample) {
		s.evictedRows.Add(1)
	}
	s.inserted.Add(1)

	return nil
}

// GetRange returns the time span and count of all retained samples.
// The zero value is the empty sentinel. Sub-linear in retained samples.
func (s *Store) GetRange() types.RangeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.rangeInfo()
}

// Seek returns, per tag, the most recent sample with timestamp <= tsMs.
// With no tag ids it covers every retained tag. Tags with no qualifying
// sample are omitted; no data is never an error. Ties on exactly equal
// timestamps resolve to the later-inserted sample, so seeking "now" and
// seeking a past instant behave identically.
func (s *Store) Seek(tsMs int64, tagIDs ...string) map[string]types.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(tagIDs) == 0 {
		tagIDs = s.ring.tags()
	}

	out := make(map[string]types.Sample, len(tagIDs))
	for _, tagID := range tagIDs {
		if sample, ok := s.ring.seekTag(tagID, tsMs); ok {
			out[tagID] = sample
		}
	}
	return out
}

// Sparkline returns at most maxPoints (timestamp, value) pairs for the tag
// within [startMs, endMs], LTTB-downsampled. Non-numeric samples are
// excluded. A series already within the bound is returned verbatim; no data
// yields an empty series, not an error.
func (s *Store) Sparkline(tagID string, startMs, endMs int64, maxPoints int) (types.Series, error) {
	if endMs <= startMs {
		return types.Series{}, errors.NewInvalidRange(startMs, endMs)
	}

	s.mu.RLock()
	ts, vs := s.ring.collectNumeric(tagID, startMs, endMs)
	s.mu.RUnlock()

	ts, vs = downsampleLTTB(ts, vs, maxPoints)
	return types.Series{Timestamps: ts, Values: vs}, nil
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.ring.len())
}

// Samples returns a copy of every retained sample in insertion order.
func (s *Store) Samples() []types.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.all()
}

// Stats holds store statistics.
type Stats struct {
	Retained    int
	Inserted    int64
	Rejected    int64
	EvictedRows int64
	EvictedAge  int64
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	retained := int(s.ring.len())
	s.mu.RUnlock()

	return Stats{
		Retained:    retained,
		Inserted:    s.inserted.Load(),
		Rejected:    s.rejected.Load(),
		EvictedRows: s.evictedRows.Load(),
		EvictedAge:  s.evictedAge.Load(),
	}
}
