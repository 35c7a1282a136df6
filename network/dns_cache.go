package network

import (
	"container/list"
	"sync"
	"time"
)

// DNSCacheMetrics is a snapshot of DNS cache counters.
type DNSCacheMetrics struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type dnsCacheEntry struct {
	key       string
	ips       []string
	expiresAt time.Time
}

// dnsCache is an LRU cache of resolved addresses. Each entry lives for a
// TTL of its DNS answer.
type dnsCache struct {
	maxSize int
	entries map[string]*list.Element
	lru     *list.List
	mutex   sync.Mutex
	now     func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

func (c *dnsCache) Get(key string) ([]string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++

		return nil, false
	}

	entry := elem.Value.(*dnsCacheEntry) //nolint: forcetypeassert

	if !c.now().Before(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.entries, key)
		c.misses++

		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.hits++

	return entry.ips, true
}

func (c *dnsCache) Set(key string, ips []string, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	expiresAt := c.now().Add(ttl)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*dnsCacheEntry) //nolint: forcetypeassert
		entry.ips = ips
		entry.expiresAt = expiresAt
		c.lru.MoveToFront(elem)

		return
	}

	c.entries[key] = c.lru.PushFront(&dnsCacheEntry{
		key:       key,
		ips:       ips,
		expiresAt: expiresAt,
	})

	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*dnsCacheEntry).key) //nolint: forcetypeassert
		c.evictions++
	}
}

// Cleanup removes expired entries and returns how many of them were
// removed.
func (c *dnsCache) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0

	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*dnsCacheEntry) //nolint: forcetypeassert

		if !now.Before(entry.expiresAt) {
			c.lru.Remove(elem)
			delete(c.entries, entry.key)
			removed++
		}

		elem = next
	}

	return removed
}

func (c *dnsCache) Metrics() DNSCacheMetrics {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return DNSCacheMetrics{
		Size:      c.lru.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func newDNSCache(maxSize int) *dnsCache {
	if maxSize <= 0 {
		maxSize = defaultDNSCacheSize
	}

	return &dnsCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		now:     time.Now,
	}
}
