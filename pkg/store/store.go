package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/vjranagit/memtrend/pkg/series"
)

// Header is the first row of every persisted series file
var Header = []string{"elapsed_seconds", "metric_value"}

// PersistenceError reports a failed save or load, including malformed
// file content
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Save writes a series as UTF-8 CSV: the header row, then one row per
// sample in order. Floats are formatted with the shortest
// representation that round-trips float64 exactly, so a reloaded
// series reproduces the original values bit for bit.
func Save(s *series.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	for _, sample := range s.Samples {
		row := []string{
			strconv.FormatFloat(sample.ElapsedSeconds, 'g', -1, 64),
			strconv.FormatFloat(sample.Value, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return &PersistenceError{Op: "save", Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	if err := f.Sync(); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load reads a persisted series and returns it in the Closed state.
// The label is supplied by the caller; file content carries only the
// sample rows. A missing or malformed header, a row with fewer than
// two fields, or an unparseable number all fail with a
// PersistenceError.
func Load(path, label string) (*series.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Row width is validated per record below, so short rows produce
	// a PersistenceError instead of a csv.ErrFieldCount
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	if len(rows) == 0 {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("missing header row")}
	}
	if len(rows[0]) < 2 || rows[0][0] != Header[0] || rows[0][1] != Header[1] {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("malformed header %v", rows[0])}
	}

	samples := make([]series.Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2

		if len(row) < 2 {
			return nil, &PersistenceError{
				Op: "load", Path: path,
				Err: fmt.Errorf("line %d: expected 2 fields, got %d", line, len(row)),
			}
		}

		elapsed, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, &PersistenceError{
				Op: "load", Path: path,
				Err: fmt.Errorf("line %d: bad elapsed_seconds: %w", line, err),
			}
		}

		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, &PersistenceError{
				Op: "load", Path: path,
				Err: fmt.Errorf("line %d: bad metric_value: %w", line, err),
			}
		}

		samples = append(samples, series.Sample{ElapsedSeconds: elapsed, Value: value})
	}

	return series.NewClosed(label, samples), nil
}
