package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

type entryKey struct {
	kind core.SourceKind
	key  string
}

type memoryEntry struct {
	key        entryKey
	value      core.SourcePayload
	insertedAt time.Time
	ttl        time.Duration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) >= e.ttl
}

// MemoryCache is an in-memory implementation of core.Cache. Entries live in
// insertion order; when the cache is full the least recently inserted entry
// is evicted regardless of its remaining TTL.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[entryKey]*list.Element
	order    *list.List
	capacity int
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64

	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory cache. A positive cleanupFreq starts
// a background sweep that runs until Stop is called.
func NewMemoryCache(logger *zap.Logger, capacity int, cleanupFreq time.Duration, opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	cache := &MemoryCache{
		entries:     make(map[entryKey]*list.Element),
		order:       list.New(),
		capacity:    normalizeCapacity(capacity),
		now:         o.now,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache
}

// Get retrieves a live entry
func (c *MemoryCache) Get(_ context.Context, kind core.SourceKind, key string) (core.SourcePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[entryKey{kind, key}]
	if !ok {
		c.misses++
		return core.SourcePayload{}, false
	}

	entry := elem.Value.(*memoryEntry)
	if entry.expired(c.now()) {
		c.removeElement(elem)
		c.misses++
		return core.SourcePayload{}, false
	}

	c.hits++
	return entry.value, true
}

// Put stores an entry. An overwrite counts as a fresh insertion.
func (c *MemoryCache) Put(_ context.Context, kind core.SourceKind, key string, value core.SourcePayload, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := entryKey{kind, key}
	if elem, ok := c.entries[k]; ok {
		c.removeElement(elem)
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.removeElement(oldest)
		c.evictions++
	}

	entry := &memoryEntry{
		key:        k,
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
	}
	c.entries[k] = c.order.PushBack(entry)
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(_ context.Context, kind core.SourceKind, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[entryKey{kind, key}]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*memoryEntry).expired(now) {
			c.removeElement(elem)
			expiredCount++
		}
		elem = next
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Stats returns the cache counters
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
	}
}

// removeElement must be called with mu held
func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*memoryEntry)
	delete(c.entries, entry.key)
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
