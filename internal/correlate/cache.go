package correlate

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
)

// CachedFinder wraps a Finder with an in-memory LRU cache. Sequence
// requests for the same seed repeat the same lookup; caching keeps repeated
// playback snappy and off the upstream.
type CachedFinder struct {
	inner   Finder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFinder creates a cache decorator around a finder.
func NewCachedFinder(inner Finder, maxEntries int, metrics *observability.Metrics) *CachedFinder {
	return &CachedFinder{
		inner:   inner,
		cache:   newLRUCache(maxEntries, metrics),
		metrics: metrics,
	}
}

func (c *CachedFinder) FindNearby(ctx context.Context, target hazard.Type, lat, lon, radiusKm float64, w Window) ([]hazard.Feature, error) {
	key := cacheKey(target, lat, lon, radiusKm, w)
	if features, ok := c.cache.get(key); ok {
		c.metrics.CorrelationCache.WithLabelValues("hit").Inc()
		return features, nil
	}
	c.metrics.CorrelationCache.WithLabelValues("miss").Inc()

	features, err := c.inner.FindNearby(ctx, target, lat, lon, radiusKm, w)
	if err != nil {
		return features, err
	}
	// Only cache non-empty results so transient misses can be retried.
	if len(features) > 0 {
		c.cache.put(key, features)
	}
	return features, nil
}

func cacheKey(target hazard.Type, lat, lon, radiusKm float64, w Window) string {
	var at int64
	if !w.At.IsZero() {
		at = w.At.Unix()
	}
	return fmt.Sprintf("%s|%.4f|%.4f|%.0f|%d|%d|%d", target, lat, lon, radiusKm, at, w.DaysBefore, w.DaysAfter)
}

// lruCache is a mutex-guarded LRU keyed by lookup parameters. Evictions are
// counted in the cache metrics so an undersized cache is visible in
// monitoring rather than showing up only as a depressed hit rate.
type lruCache struct {
	maxEntries int
	metrics    *observability.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key        string
	features   []hazard.Feature
	prev, next *entry
}

func newLRUCache(maxEntries int, metrics *observability.Metrics) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		metrics:    metrics,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]hazard.Feature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.promote(e)
	return e.features, true
}

func (c *lruCache) put(key string, features []hazard.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.features = features
		c.promote(e)
		return
	}

	e := &entry{key: key, features: features}
	c.entries[key] = e
	c.attach(e)

	if len(c.entries) > c.maxEntries && c.tail != nil {
		evicted := c.tail
		c.detach(evicted)
		delete(c.entries, evicted.key)
		c.metrics.CorrelationCache.WithLabelValues("evict").Inc()
	}
}

// promote moves an entry to the front of the recency list.
func (c *lruCache) promote(e *entry) {
	if e == c.head {
		return
	}
	c.detach(e)
	c.attach(e)
}

func (c *lruCache) attach(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) detach(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
