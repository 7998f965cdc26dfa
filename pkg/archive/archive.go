// Package archive persists finished measurement runs in BadgerDB with
// compressed sample columns and a label index for lookup.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vjranagit/memtrend/pkg/series"
)

// ErrNotFound is returned when a run ID is not in the archive
var ErrNotFound = errors.New("run not found")

// Run is a finished measurement run as stored in the archive
type Run struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Workload   string            `json:"workload"`
	Labels     map[string]string `json:"labels,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Iterations int               `json:"iterations"`
	StepErrors int               `json:"step_errors"`
	Samples    []series.Sample   `json:"samples"`
}

// Series rebuilds the run's sample series for analysis
func (r *Run) Series() *series.Series {
	return series.NewClosed(r.Label, r.Samples)
}

// Archive is the contract for run storage
type Archive interface {
	// Put stores a run
	Put(ctx context.Context, run *Run) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*Run, error)

	// List returns all runs, newest first
	List(ctx context.Context) ([]*Run, error)

	// Find returns runs matching all label selectors, newest first
	Find(ctx context.Context, selectors map[string]string) ([]*Run, error)

	// Close closes the archive
	Close() error
}

// Config holds archive configuration
type Config struct {
	Path             string
	CompressionLevel int
}

// DefaultConfig returns default archive configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
	}
}

// badgerArchive implements Archive using BadgerDB
type badgerArchive struct {
	cfg   *Config
	db    *badger.DB
	index *Index
	codec *Codec
	mu    sync.RWMutex
}

// Open opens or creates an archive at the configured path
func Open(cfg *Config) (Archive, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	a := &badgerArchive{
		cfg:   cfg,
		db:    db,
		index: NewIndex(),
		codec: codec,
	}

	if err := a.loadIndex(); err != nil {
		codec.Close()
		db.Close()
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	return a, nil
}

// runEnvelope is the stored representation of a run
type runEnvelope struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Workload   string            `json:"workload"`
	Labels     map[string]string `json:"labels,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Iterations int               `json:"iterations"`
	StepErrors int               `json:"step_errors"`
	Count      int               `json:"count"`
	Elapsed    []byte            `json:"elapsed,omitempty"`
	Values     []byte            `json:"values,omitempty"`
}

// Put implements Archive.Put
func (a *badgerArchive) Put(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Split samples into columns for compression
	elapsed := make([]float64, len(run.Samples))
	values := make([]float64, len(run.Samples))
	for i, s := range run.Samples {
		elapsed[i] = s.ElapsedSeconds
		values[i] = s.Value
	}

	compressedElapsed, err := a.codec.CompressElapsed(elapsed)
	if err != nil {
		return fmt.Errorf("failed to compress elapsed column: %w", err)
	}

	compressedValues, err := a.codec.CompressValues(values)
	if err != nil {
		return fmt.Errorf("failed to compress value column: %w", err)
	}

	envelope := &runEnvelope{
		ID:         run.ID,
		Label:      run.Label,
		Workload:   run.Workload,
		Labels:     run.Labels,
		CreatedAt:  run.CreatedAt,
		Iterations: run.Iterations,
		StepErrors: run.StepErrors,
		Count:      len(run.Samples),
		Elapsed:    compressedElapsed,
		Values:     compressedValues,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), payload)
	})
	if err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}

	a.index.Add(run.ID, run.CreatedAt, indexLabels(run))
	return nil
}

// Get implements Archive.Get
func (a *badgerArchive) Get(ctx context.Context, id string) (*Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.get(id)
}

// get reads a run without taking the lock
func (a *badgerArchive) get(id string) (*Run, error) {
	var payload []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			payload = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read run %q: %w", id, err)
	}

	var envelope runEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return a.decodeEnvelope(&envelope)
}

// decodeEnvelope decompresses the sample columns back into a run
func (a *badgerArchive) decodeEnvelope(envelope *runEnvelope) (*Run, error) {
	elapsed, err := a.codec.DecompressElapsed(envelope.Elapsed, envelope.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress elapsed column: %w", err)
	}

	values, err := a.codec.DecompressValues(envelope.Values, envelope.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress value column: %w", err)
	}

	samples := make([]series.Sample, envelope.Count)
	for i := 0; i < envelope.Count; i++ {
		samples[i] = series.Sample{
			ElapsedSeconds: elapsed[i],
			Value:          values[i],
		}
	}

	return &Run{
		ID:         envelope.ID,
		Label:      envelope.Label,
		Workload:   envelope.Workload,
		Labels:     envelope.Labels,
		CreatedAt:  envelope.CreatedAt,
		Iterations: envelope.Iterations,
		StepErrors: envelope.StepErrors,
		Samples:    samples,
	}, nil
}

// List implements Archive.List
func (a *badgerArchive) List(ctx context.Context) ([]*Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := a.index.IDs()
	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		run, err := a.get(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Find implements Archive.Find
func (a *badgerArchive) Find(ctx context.Context, selectors map[string]string) ([]*Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	runs := make([]*Run, 0)
	for _, id := range a.index.Find(selectors) {
		run, err := a.get(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close implements Archive.Close
func (a *badgerArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.codec != nil {
		a.codec.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// loadIndex rebuilds the in-memory index by scanning stored envelopes
func (a *badgerArchive) loadIndex() error {
	return a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var envelope runEnvelope
				if err := json.Unmarshal(val, &envelope); err != nil {
					return fmt.Errorf("failed to unmarshal envelope: %w", err)
				}
				run := &Run{
					ID:       envelope.ID,
					Label:    envelope.Label,
					Workload: envelope.Workload,
					Labels:   envelope.Labels,
				}
				a.index.Add(envelope.ID, envelope.CreatedAt, indexLabels(run))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const runKeyPrefix = "run/"

// runKey generates the storage key for a run
func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

// indexLabels merges a run's labels with its built-in fields
func indexLabels(run *Run) map[string]string {
	labels := make(map[string]string, len(run.Labels)+2)
	for k, v := range run.Labels {
		labels[k] = v
	}
	labels["label"] = run.Label
	labels["workload"] = run.Workload
	return labels
}
