package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vjranagit/memtrend/pkg/series"
)

// Journal records run samples to disk as they are taken, so a crashed
// run still leaves usable data behind. One journal holds one run.
type Journal struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// journalEntry is a single journal line
type journalEntry struct {
	Event  string         `json:"event"`
	At     time.Time      `json:"at"`
	Label  string         `json:"label,omitempty"`
	Sample *series.Sample `json:"sample,omitempty"`
}

// NewJournal creates a journal file, truncating any previous run
func NewJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Begin marks the start of a run
func (j *Journal) Begin(label string) error {
	return j.append(journalEntry{Event: "begin", At: time.Now(), Label: label})
}

// Record journals one sample
func (j *Journal) Record(s series.Sample) error {
	return j.append(journalEntry{Event: "sample", At: time.Now(), Sample: &s})
}

// End marks a clean finish
func (j *Journal) End() error {
	return j.append(journalEntry{Event: "end", At: time.Now()})
}

// append writes one entry and syncs it. Samples arrive at the run's
// record cadence, so per-entry syncing is affordable.
func (j *Journal) append(entry journalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return j.file.Sync()
}

// Close closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	return j.file.Close()
}

// Replay reconstructs a series from a journal file. A journal without
// an end entry is still replayed; the samples taken before the crash
// are returned as a closed series.
func Replay(path string) (*series.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	var (
		label    string
		samples  []series.Sample
		sawBegin bool
	)

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		var entry journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal line %d: %w", line, err)
		}

		switch entry.Event {
		case "begin":
			// A new begin discards any earlier partial run
			label = entry.Label
			samples = nil
			sawBegin = true
		case "sample":
			if !sawBegin {
				return nil, fmt.Errorf("journal line %d: sample before begin", line)
			}
			if entry.Sample == nil {
				return nil, fmt.Errorf("journal line %d: sample entry without sample", line)
			}
			samples = append(samples, *entry.Sample)
		case "end":
			if !sawBegin {
				return nil, fmt.Errorf("journal line %d: end before begin", line)
			}
		default:
			return nil, fmt.Errorf("journal line %d: unknown event %q", line, entry.Event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	if !sawBegin {
		return nil, fmt.Errorf("journal %s has no begin entry", path)
	}

	return series.NewClosed(label, samples), nil
}
