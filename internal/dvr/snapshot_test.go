package dvr

import (
	"os"
	"path/filepath"
	"testing"

	"tagwatch/internal/types"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvr.parquet")

	s := New(Options{MaxRows: 100})
	s.Insert(numSample("temp", 1000, 21.5))
	s.Insert(types.BoolSample("valve", 1100, true, types.QualityUncertain))
	s.Insert(types.TextSample("state", 1200, "RUNNING", types.QualityGood))

	if err := s.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored := New(Options{MaxRows: 100})
	n, err := restored.Restore(path)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 samples restored, got %d", n)
	}

	got := restored.Seek(2000)
	if len(got) != 3 {
		t.Fatalf("expected 3 tags after restore, got %d", len(got))
	}
	if got["temp"].Value != 21.5 || got["temp"].Quality != types.QualityGood {
		t.Errorf("numeric sample mangled: %+v", got["temp"])
	}
	if !got["valve"].BoolValue || got["valve"].Quality != types.QualityUncertain {
		t.Errorf("bool sample mangled: %+v", got["valve"])
	}
	if got["state"].TextValue != "RUNNING" || got["state"].Kind != types.KindText {
		t.Errorf("text sample mangled: %+v", got["state"])
	}
}

func TestSnapshot_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvr.parquet")

	s := New(Options{MaxRows: 10})
	if err := s.Snapshot(path); err != nil {
		t.Fatalf("Snapshot of empty store: %v", err)
	}

	restored := New(Options{MaxRows: 10})
	n, err := restored.Restore(path)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 0 || restored.Len() != 0 {
		t.Errorf("expected empty restore, got n=%d len=%d", n, restored.Len())
	}
}

func TestRestore_MissingFile(t *testing.T) {
	s := New(Options{MaxRows: 10})
	_, err := s.Restore(filepath.Join(t.TempDir(), "nope.parquet"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRestore_RespectsRowCap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvr.parquet")

	s := New(Options{MaxRows: 50})
	for i := 0; i < 50; i++ {
		s.Insert(numSample("temp", int64(1000+i), float64(i)))
	}
	if err := s.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	small := New(Options{MaxRows: 10})
	if _, err := small.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if small.Len() != 10 {
		t.Errorf("restore must respect row cap, got %d retained", small.Len())
	}
}
