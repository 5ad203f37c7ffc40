package recurrence

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"maps"
	"slices"
	"sync"
	"time"
)

// CacheEntry is one stored expansion.
type CacheEntry struct {
	Occurrences []time.Time
	ExpiresAt   time.Time
	AccessedAt  time.Time
}

// OccurrenceCache caches expansion results keyed by rule and query.
type OccurrenceCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	hits, misses    int64
}

// CacheConfig tunes an OccurrenceCache. Fields left at zero take their value
// from DefaultCacheConfig.
type CacheConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultCacheConfig is used by DefaultEngineConfig.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewOccurrenceCache starts a cache and its sweeper.
func NewOccurrenceCache(config CacheConfig) *OccurrenceCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &OccurrenceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey identifies one query against one rule.
type cacheKey struct {
	operation string
	rule      Rule
	from, to  time.Time
	n         int
}

func writeTime(h hash.Hash, t time.Time) {
	h.Write([]byte(t.Format(time.RFC3339Nano)))
	h.Write([]byte(t.Location().String()))
}

func writeInt(h hash.Hash, v int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}

// generateCacheKey hashes every field that influences the result
func (c *OccurrenceCache) generateCacheKey(k cacheKey) string {
	hasher := sha256.New()

	hasher.Write([]byte(k.operation))

	r := k.rule
	writeTime(hasher, r.start)
	writeInt(hasher, int(r.period))
	writeInt(hasher, r.frequency)
	writeInt(hasher, r.daySetting)
	writeInt(hasher, int(r.endType))
	writeInt(hasher, r.endCount)
	writeTime(hasher, r.endDate)

	writeTime(hasher, k.from)
	writeTime(hasher, k.to)
	writeInt(hasher, k.n)

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// get retrieves a cached result if it exists and hasn't expired. The
// returned slice is a copy.
func (c *OccurrenceCache) get(k cacheKey) ([]time.Time, bool) {
	key := c.generateCacheKey(k)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if ok && now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	entry.AccessedAt = now
	return slices.Clone(entry.Occurrences), true
}

// set stores a copy of times under key.
func (c *OccurrenceCache) set(k cacheKey, occurrences []time.Time) {
	key := c.generateCacheKey(k)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &CacheEntry{
		Occurrences: slices.Clone(occurrences),
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}
	if len(c.entries) > c.maxEntries {
		c.evict(now)
	}
}

// evict drops expired entries, then the least recently read ones until
// the cache is back to maxEntries. The caller must hold the write lock.
func (c *OccurrenceCache) evict(now time.Time) {
	maps.DeleteFunc(c.entries, func(_ string, e *CacheEntry) bool {
		return now.After(e.ExpiresAt)
	})

	excess := len(c.entries) - c.maxEntries
	if excess <= 0 {
		return
	}
	keys := slices.SortedFunc(maps.Keys(c.entries), func(a, b string) int {
		return c.entries[a].AccessedAt.Compare(c.entries[b].AccessedAt)
	})
	for _, key := range keys[:excess] {
		delete(c.entries, key)
	}
}

// cleanupLoop evicts on every tick until Close.
func (c *OccurrenceCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.mutex.Lock()
			c.evict(now)
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the sweeper and drops every entry.
func (c *OccurrenceCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	clear(c.entries)
	c.mutex.Unlock()
}

// Stats reports entry counts and lookup totals.
func (c *OccurrenceCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	stats := CacheStats{
		TotalEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
	}
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}

// CacheStats is a snapshot of an OccurrenceCache.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	// Lookups since the cache was created
	Hits   int64
	Misses int64
}
