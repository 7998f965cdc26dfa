package archive

import (
	"sort"
	"time"
)

// Index manages the in-memory run index
type Index struct {
	// Maps run fingerprint to run metadata
	runs map[uint64]*runMeta
	// Inverted index: label name -> label value -> run fingerprints
	labelIndex map[string]map[string][]uint64
}

// runMeta holds metadata about a single indexed run
type runMeta struct {
	Fingerprint uint64
	ID          string
	CreatedAt   time.Time
	Labels      map[string]string
}

// NewIndex creates a new index
func NewIndex() *Index {
	return &Index{
		runs:       make(map[uint64]*runMeta),
		labelIndex: make(map[string]map[string][]uint64),
	}
}

// Add indexes a run. Re-adding an existing ID replaces its entry.
func (idx *Index) Add(id string, createdAt time.Time, labels map[string]string) uint64 {
	fingerprint := fnvHash([]byte(id))

	// Drop stale postings when the run is replaced
	if _, exists := idx.runs[fingerprint]; exists {
		idx.remove(fingerprint)
	}

	meta := &runMeta{
		Fingerprint: fingerprint,
		ID:          id,
		CreatedAt:   createdAt,
		Labels:      labels,
	}
	idx.runs[fingerprint] = meta

	// Update inverted index
	for name, value := range labels {
		if idx.labelIndex[name] == nil {
			idx.labelIndex[name] = make(map[string][]uint64)
		}
		idx.labelIndex[name][value] = append(idx.labelIndex[name][value], fingerprint)
	}

	return fingerprint
}

// remove drops a run's postings from the inverted index
func (idx *Index) remove(fingerprint uint64) {
	meta, ok := idx.runs[fingerprint]
	if !ok {
		return
	}

	for name, value := range meta.Labels {
		valueMap, ok := idx.labelIndex[name]
		if !ok {
			continue
		}
		postings := valueMap[value]
		for i, fp := range postings {
			if fp == fingerprint {
				valueMap[value] = append(postings[:i], postings[i+1:]...)
				break
			}
		}
		if len(valueMap[value]) == 0 {
			delete(valueMap, value)
		}
	}

	delete(idx.runs, fingerprint)
}

// IDs returns all indexed run IDs, newest first
func (idx *Index) IDs() []string {
	metas := make([]*runMeta, 0, len(idx.runs))
	for _, meta := range idx.runs {
		metas = append(metas, meta)
	}
	return sortedIDs(metas)
}

// Find returns run IDs matching all label selectors, newest first
func (idx *Index) Find(selectors map[string]string) []string {
	if len(selectors) == 0 {
		return idx.IDs()
	}

	// Find intersection of matching runs across all selectors
	var result []uint64
	first := true

	for labelName, labelValue := range selectors {
		valueMap, ok := idx.labelIndex[labelName]
		if !ok {
			return nil // Label name doesn't exist
		}

		fingerprints, ok := valueMap[labelValue]
		if !ok {
			return nil // Label value doesn't exist
		}

		if first {
			result = append([]uint64(nil), fingerprints...)
			first = false
		} else {
			result = intersect(result, fingerprints)
		}

		if len(result) == 0 {
			return nil // No matches
		}
	}

	metas := make([]*runMeta, 0, len(result))
	for _, fingerprint := range result {
		if meta, ok := idx.runs[fingerprint]; ok {
			metas = append(metas, meta)
		}
	}
	return sortedIDs(metas)
}

// RunCount returns the number of indexed runs
func (idx *Index) RunCount() int {
	return len(idx.runs)
}

// Clear clears the index
func (idx *Index) Clear() {
	idx.runs = make(map[uint64]*runMeta)
	idx.labelIndex = make(map[string]map[string][]uint64)
}

// sortedIDs orders runs newest first, breaking ties by ID
func sortedIDs(metas []*runMeta) []string {
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].ID < metas[j].ID
		}
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	ids := make([]string, len(metas))
	for i, meta := range metas {
		ids[i] = meta.ID
	}
	return ids
}

// fnvHash computes an FNV-1a hash of bytes
func fnvHash(data []byte) uint64 {
	var hash uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, b := range data {
		hash ^= uint64(b)
		hash *= 1099511628211 // FNV-1a prime
	}
	return hash
}

// intersect finds common elements in two slices
func intersect(a, b []uint64) []uint64 {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })

	result := make([]uint64, 0)
	i, j := 0, 0

	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			i++
		} else if a[i] > b[j] {
			j++
		} else {
			result = append(result, a[i])
			i++
			j++
		}
	}

	return result
}
