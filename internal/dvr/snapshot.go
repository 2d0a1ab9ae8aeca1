package dvr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"tagwatch/internal/types"
)

// sampleRow is the Parquet representation of a retained sample.
type sampleRow struct {
	TagID       string  `parquet:"tag_id,zstd"`
	TimestampMs int64   `parquet:"timestamp_ms"`
	Kind        int32   `parquet:"kind"`
	Value       float64 `parquet:"value"`
	BoolValue   bool    `parquet:"bool_value"`
	TextValue   string  `parquet:"text_value,optional,zstd"`
	Quality     string  `parquet:"quality,zstd"`
}

func sampleToRow(s *types.Sample) sampleRow {
	return sampleRow{
		TagID:       s.TagID,
		TimestampMs: s.TimestampMs,
		Kind:        int32(s.Kind),
		Value:       s.Value,
		BoolValue:   s.BoolValue,
		TextValue:   s.TextValue,
		Quality:     string(s.Quality),
	}
}

func rowToSample(r *sampleRow) types.Sample {
	return types.Sample{
		TagID:       r.TagID,
		TimestampMs: r.TimestampMs,
		Kind:        types.ValueKind(r.Kind),
		Value:       r.Value,
		BoolValue:   r.BoolValue,
		TextValue:   r.TextValue,
		Quality:     types.Quality(r.Quality),
	}
}

// Snapshot writes every retained sample to a Parquet file at path.
// This is the DVR's durability hook, typically invoked at shutdown.
func (s *Store) Snapshot(path string) error {
	samples := s.Samples()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	writer := parquet.NewGenericWriter[sampleRow](f, parquet.Compression(&parquet.Zstd))

	rows := make([]sampleRow, len(samples))
	for i := range samples {
		rows[i] = sampleToRow(&samples[i])
	}

	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			f.Close()
			return fmt.Errorf("write rows: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}

// Restore re-inserts samples from a Parquet snapshot. Samples outside the
// retention window or beyond the row cap are evicted on the way in, so a
// restore never violates the store's bounds. Returns the number of samples
// read from the file.
func (s *Store) Restore(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[sampleRow](f)
	defer reader.Close()

	total := 0
	buf := make([]sampleRow, 1024)
	for {
		n, err := reader.Read(buf)
		for i := 0; i < n; i++ {
			sample := rowToSample(&buf[i])
			if insErr := s.Insert(sample); insErr != nil {
				return total, fmt.Errorf("restore sample: %w", insErr)
			}
			total++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read snapshot: %w", err)
		}
	}

	return total, nil
}
