package archive

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// RunCache implements an LRU cache for archived runs
type RunCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.RWMutex
	cache    map[string]*cacheEntry
	lru      *list.List
}

// cacheEntry represents a cached run
type cacheEntry struct {
	key       string
	run       *Run
	timestamp time.Time
	element   *list.Element
}

// NewRunCache creates a new run cache
func NewRunCache(capacity int, ttl time.Duration) *RunCache {
	return &RunCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached run by ID
func (rc *RunCache) Get(id string) (*Run, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, exists := rc.cache[id]
	if !exists {
		return nil, false
	}

	// Check if entry has expired
	if time.Since(entry.timestamp) > rc.ttl {
		rc.removeLocked(id)
		return nil, false
	}

	// Move to front of LRU list (most recently used)
	rc.lru.MoveToFront(entry.element)

	return entry.run, true
}

// Put stores a run in the cache
func (rc *RunCache) Put(id string, run *Run) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	// Check if entry already exists
	if entry, exists := rc.cache[id]; exists {
		entry.run = run
		entry.timestamp = time.Now()
		rc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       id,
		run:       run,
		timestamp: time.Now(),
	}

	// Add to cache and LRU list
	entry.element = rc.lru.PushFront(entry)
	rc.cache[id] = entry

	// Evict oldest entry if cache is full
	if rc.lru.Len() > rc.capacity {
		oldest := rc.lru.Back()
		if oldest != nil {
			oldestEntry := oldest.Value.(*cacheEntry)
			rc.removeLocked(oldestEntry.key)
		}
	}
}

// removeLocked removes an entry from the cache (must hold lock)
func (rc *RunCache) removeLocked(id string) {
	if entry, exists := rc.cache[id]; exists {
		rc.lru.Remove(entry.element)
		delete(rc.cache, id)
	}
}

// Clear clears all cache entries
func (rc *RunCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache = make(map[string]*cacheEntry)
	rc.lru = list.New()
}

// Size returns the current cache size
func (rc *RunCache) Size() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.cache)
}

// Stats returns cache statistics
func (rc *RunCache) Stats() CacheStats {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	expired := 0
	for _, entry := range rc.cache {
		if time.Since(entry.timestamp) > rc.ttl {
			expired++
		}
	}

	return CacheStats{
		Size:     len(rc.cache),
		Capacity: rc.capacity,
		Expired:  expired,
	}
}

// CacheStats contains cache statistics
type CacheStats struct {
	Size     int
	Capacity int
	Expired  int
}

// CachedArchive wraps an archive with run caching
type CachedArchive struct {
	archive Archive
	cache   *RunCache
	hits    uint64
	misses  uint64
	mu      sync.RWMutex
}

// NewCachedArchive creates a cached archive wrapper
func NewCachedArchive(archive Archive, cacheCapacity int, cacheTTL time.Duration) *CachedArchive {
	return &CachedArchive{
		archive: archive,
		cache:   NewRunCache(cacheCapacity, cacheTTL),
	}
}

// Put writes through to the underlying archive and refreshes the cache
func (ca *CachedArchive) Put(ctx context.Context, run *Run) error {
	if err := ca.archive.Put(ctx, run); err != nil {
		return err
	}
	ca.cache.Put(run.ID, run)
	return nil
}

// Get checks the cache before reading the archive
func (ca *CachedArchive) Get(ctx context.Context, id string) (*Run, error) {
	if run, ok := ca.cache.Get(id); ok {
		ca.mu.Lock()
		ca.hits++
		ca.mu.Unlock()
		return run, nil
	}

	ca.mu.Lock()
	ca.misses++
	ca.mu.Unlock()

	run, err := ca.archive.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ca.cache.Put(id, run)
	return run, nil
}

// List passes through to the underlying archive
func (ca *CachedArchive) List(ctx context.Context) ([]*Run, error) {
	return ca.archive.List(ctx)
}

// Find passes through to the underlying archive
func (ca *CachedArchive) Find(ctx context.Context, selectors map[string]string) ([]*Run, error) {
	return ca.archive.Find(ctx, selectors)
}

// Close closes the underlying archive
func (ca *CachedArchive) Close() error {
	return ca.archive.Close()
}

// CacheStats returns cache statistics with hit and miss counts
func (ca *CachedArchive) CacheStats() (CacheStats, uint64, uint64) {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	return ca.cache.Stats(), ca.hits, ca.misses
}

// CacheHitRate returns the cache hit rate as a percentage
func (ca *CachedArchive) CacheHitRate() float64 {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	total := ca.hits + ca.misses
	if total == 0 {
		return 0.0
	}

	return float64(ca.hits) / float64(total) * 100.0
}
