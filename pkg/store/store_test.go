package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vjranagit/memtrend/pkg/series"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "series.csv")

	original := series.NewClosed("roundtrip", []series.Sample{
		{ElapsedSeconds: 0, Value: 104857600.0},
		{ElapsedSeconds: 0.51327, Value: 104861234.5},
		{ElapsedSeconds: 1.0273, Value: 105906176.25},
		{ElapsedSeconds: 2.000001, Value: 106954752.125},
	})

	if err := Save(original, path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := Load(path, "roundtrip")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if loaded.State != series.Closed {
		t.Errorf("Expected closed series, got %s", loaded.State)
	}
	if loaded.Label != "roundtrip" {
		t.Errorf("Expected label 'roundtrip', got %s", loaded.Label)
	}
	if loaded.Len() != original.Len() {
		t.Fatalf("Expected %d samples, got %d", original.Len(), loaded.Len())
	}

	for i := range original.Samples {
		if loaded.Samples[i] != original.Samples[i] {
			t.Errorf("Sample %d mismatch: expected %+v, got %+v",
				i, original.Samples[i], loaded.Samples[i])
		}
	}
}

func TestSaveWritesHeader(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "series.csv")

	s := series.NewClosed("hdr", []series.Sample{
		{ElapsedSeconds: 0, Value: 1},
	})

	if err := Save(s, path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "elapsed_seconds,metric_value" {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if lines[1] != "0,1" {
		t.Errorf("Unexpected data row: %q", lines[1])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "missing")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected PersistenceError, got %T", err)
	}
	if perr.Op != "load" {
		t.Errorf("Expected op 'load', got %q", perr.Op)
	}
}

func TestLoadMalformedContent(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"wrong header", "time,mb\n0,1\n"},
		{"partial header", "elapsed_seconds\n0\n"},
		{"short row", "elapsed_seconds,metric_value\n1.5\n"},
		{"bad elapsed", "elapsed_seconds,metric_value\nabc,1\n"},
		{"bad value", "elapsed_seconds,metric_value\n0,xyz\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.csv")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("Failed to write fixture: %v", err)
			}

			_, err := Load(path, "bad")
			if err == nil {
				t.Fatal("Expected error for malformed content")
			}

			var perr *PersistenceError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected PersistenceError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadHeaderOnlyFile(t *testing.T) {
	// A header with no data rows is well-formed; it loads as an empty
	// closed series, which downstream comparison rejects
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("elapsed_seconds,metric_value\n"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	s, err := Load(path, "empty")
	if err != nil {
		t.Fatalf("Failed to load header-only file: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expected 0 samples, got %d", s.Len())
	}
	if s.State != series.Closed {
		t.Errorf("Expected closed series, got %s", s.State)
	}
}

func TestLoadToleratesExtraFields(t *testing.T) {
	// Rows wider than two fields load from the first two columns
	path := filepath.Join(t.TempDir(), "wide.csv")
	content := "elapsed_seconds,metric_value\n1,100,junk\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	s, err := Load(path, "wide")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Expected 1 sample, got %d", s.Len())
	}
	if s.Samples[0].ElapsedSeconds != 1 || s.Samples[0].Value != 100 {
		t.Errorf("Unexpected sample: %+v", s.Samples[0])
	}
}

func TestSaveEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := Save(series.NewClosed("empty", nil), path); err != nil {
		t.Fatalf("Failed to save empty series: %v", err)
	}

	loaded, err := Load(path, "empty")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Expected 0 samples, got %d", loaded.Len())
	}
}
