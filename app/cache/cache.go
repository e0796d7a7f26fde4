package cache

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"thebridge/app/interfaces"
)

// Cache provides size-bounded LRU caching for planner results
type Cache struct {
	storage     map[string]*CacheEntry
	maxSize     int64
	currentSize int64
	lru         *LRUList
	mutex       sync.Mutex
	logger      Logger

	// Performance counters
	pipelineHits int64
	stageHits    int64
	misses       int64
}

// NewCache creates a new cache
func NewCache(maxSize int64) *Cache {
	return NewCacheWithLogger(maxSize, nil)
}

// NewCacheWithLogger creates a new cache with a logger
func NewCacheWithLogger(maxSize int64, logger Logger) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &Cache{
		storage: make(map[string]*CacheEntry),
		maxSize: maxSize,
		lru:     NewLRUList(),
		logger:  logger,
	}
}

// SetLogger sets the logger for the cache
func (c *Cache) SetLogger(logger Logger) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.logger = logger
}

// Get retrieves a full pipeline result and marks it as recently used
func (c *Cache) Get(key string) (*CacheEntry, bool) {
	return c.get(key, false)
}

// GetStage retrieves an intermediate stage result and marks it as recently used
func (c *Cache) GetStage(key string) (*CacheEntry, bool) {
	return c.get(key, true)
}

func (c *Cache) get(key string, stage bool) (*CacheEntry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.storage[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		c.logf("debug", "[CACHE_MISS] Key: %s", key)
		return nil, false
	}

	if stage {
		atomic.AddInt64(&c.stageHits, 1)
		c.logf("debug", "[CACHE_HIT_STAGE] Key: %s, Rows: %d, Size: %d bytes", key, len(entry.Rows), entry.Size)
	} else {
		atomic.AddInt64(&c.pipelineHits, 1)
		c.logf("debug", "[CACHE_HIT_PIPELINE] Key: %s, Rows: %d, Size: %d bytes", key, len(entry.Rows), entry.Size)
	}

	entry.AccessTime = time.Now().Unix()
	c.lru.Touch(key)
	return entry, true
}

// Store adds or replaces an entry. Rows are shared with the dataset, so only
// pointer overhead is counted against the size limit.
func (c *Cache) Store(key string, header []string, rows []*interfaces.Row) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	size := calculateSharedRowsSize(header, len(rows))
	if size > c.maxSize {
		log.Printf("[CACHE_REJECT] Entry too large: %d bytes > %d cache limit", size, c.maxSize)
		return
	}

	if existing, exists := c.storage[key]; exists {
		c.currentSize -= existing.Size
		delete(c.storage, key)
		c.lru.Remove(key)
	}

	if !c.evictToMakeSpace(size) {
		log.Printf("[CACHE_REJECT] Could not make space for entry: %d bytes needed, %d available", size, c.maxSize-c.currentSize)
		return
	}

	now := time.Now()
	c.storage[key] = &CacheEntry{
		Header:     header,
		Rows:       rows,
		IsComplete: true,
		Size:       size,
		AccessTime: now.Unix(),
		CreateTime: now,
	}
	c.currentSize += size
	c.lru.Touch(key)

	c.logf("debug", "[CACHE_STORE] Key: %s, Rows: %d, Size: %d bytes, Total Cache: %d/%d bytes",
		key, len(rows), size, c.currentSize, c.maxSize)
}

// Remove removes a cache entry
func (c *Cache) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeLocked(key)
}

func (c *Cache) removeLocked(key string) bool {
	entry, exists := c.storage[key]
	if !exists {
		return false
	}
	delete(c.storage, key)
	c.currentSize -= entry.Size
	c.lru.Remove(key)
	return true
}

// Clear removes all cache entries
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.storage = make(map[string]*CacheEntry)
	c.currentSize = 0
	c.lru = NewLRUList()
}

// Size returns the current cache size in bytes
func (c *Cache) Size() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.currentSize
}

// MaxSize returns the maximum cache size
func (c *Cache) MaxSize() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.maxSize
}

// EntryCount returns the number of cached entries
func (c *Cache) EntryCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.storage)
}

// evictToMakeSpace removes least recently used entries until neededSize fits
func (c *Cache) evictToMakeSpace(neededSize int64) bool {
	if neededSize > c.maxSize {
		return false
	}
	for c.currentSize+neededSize > c.maxSize {
		oldestKey := c.lru.RemoveOldest()
		if oldestKey == "" {
			break
		}
		if entry, exists := c.storage[oldestKey]; exists {
			delete(c.storage, oldestKey)
			c.currentSize -= entry.Size
			if c.logger != nil {
				c.logf("debug", "[CACHE_EVICT] Evicted entry: %s, Size: %d bytes, Remaining Cache: %d/%d bytes",
					oldestKey, entry.Size, c.currentSize, c.maxSize)
			} else {
				log.Printf("[CACHE_EVICT] Evicted entry: %s (%d bytes)", oldestKey, entry.Size)
			}
		}
	}
	return c.currentSize+neededSize <= c.maxSize
}

// calculateSharedRowsSize estimates the memory size of an entry whose rows
// are shared with the dataset: header strings plus per-row pointer and
// struct overhead.
func calculateSharedRowsSize(header []string, rowCount int) int64 {
	size := int64(0)
	for _, h := range header {
		size += int64(len(h)) + 16
	}
	// 8 byte pointer + Row struct (two ints, slice header, string header)
	size += int64(rowCount) * (8 + 72)
	size += 24 + 200
	return size
}

// UpdateMaxSize updates the maximum cache size and evicts if necessary
func (c *Cache) UpdateMaxSize(newMaxSize int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if newMaxSize <= 0 {
		newMaxSize = DefaultCacheMaxSize
	}
	oldMaxSize := c.maxSize
	c.maxSize = newMaxSize
	c.logf("info", "[CACHE_RESIZE] Cache size updated from %d to %d bytes", oldMaxSize, newMaxSize)

	evictedCount := 0
	for c.currentSize > c.maxSize && c.lru.Size() > 0 {
		if c.removeLocked(c.lru.RemoveOldest()) {
			evictedCount++
		}
	}
	if evictedCount > 0 {
		c.logf("info", "[CACHE_RESIZE_EVICT] Evicted %d entries due to cache size reduction, Final Cache: %d/%d bytes",
			evictedCount, c.currentSize, c.maxSize)
	}
}

// InvalidateDataset removes every entry computed from the given dataset
func (c *Cache) InvalidateDataset(datasetHash string) int {
	prefix := DatasetPrefix(datasetHash)
	return c.removeWhere(func(key string) bool {
		return key == prefix || strings.HasPrefix(key, prefix+keySeparator)
	})
}

// InvalidateStageCache removes entries whose pipeline includes the named stage
func (c *Cache) InvalidateStageCache(stageName string) int {
	marker := keySeparator + stageName + ":"
	return c.removeWhere(func(key string) bool {
		return strings.Contains(key, marker)
	})
}

// InvalidateExpiredEntries removes entries older than maxAge
func (c *Cache) InvalidateExpiredEntries(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.storage {
		if entry.CreateTime.Before(cutoff) && c.removeLocked(key) {
			removed++
		}
	}
	return removed
}

func (c *Cache) removeWhere(match func(key string) bool) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var keysToRemove []string
	for key := range c.storage {
		if match(key) {
			keysToRemove = append(keysToRemove, key)
		}
	}
	for _, key := range keysToRemove {
		c.removeLocked(key)
	}
	return len(keysToRemove)
}

// GetCacheStats returns detailed cache statistics
func (c *Cache) GetCacheStats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := CacheStats{
		TotalEntries:      len(c.storage),
		TotalSize:         c.currentSize,
		MaxSize:           c.maxSize,
		UsagePercent:      float64(c.currentSize) / float64(c.maxSize) * 100,
		StageStats:        make(map[string]StageStats),
		PipelineCacheHits: atomic.LoadInt64(&c.pipelineHits),
		StageCacheHits:    atomic.LoadInt64(&c.stageHits),
		CacheMisses:       atomic.LoadInt64(&c.misses),
	}

	total := stats.PipelineCacheHits + stats.StageCacheHits + stats.CacheMisses
	if total > 0 {
		stats.HitRate = float64(stats.PipelineCacheHits+stats.StageCacheHits) / float64(total)
		stats.StageHitRate = float64(stats.StageCacheHits) / float64(total)
	}

	for key, entry := range c.storage {
		if stageName := LastStageName(key); stageName != "" {
			s := stats.StageStats[stageName]
			s.EntryCount++
			s.TotalSize += entry.Size
			stats.StageStats[stageName] = s
		}
	}
	return stats
}

// LastStageName extracts the name of the final stage encoded in key
func LastStageName(key string) string {
	i := strings.LastIndex(key, keySeparator)
	if i < 0 {
		return ""
	}
	part := key[i+1:]
	name, _, ok := strings.Cut(part, ":")
	if !ok {
		return ""
	}
	return name
}

func (c *Cache) logf(level, format string, args ...any) {
	if c.logger != nil {
		c.logger.Log(level, fmt.Sprintf(format, args...))
	}
}
