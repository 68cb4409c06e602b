package cache

import (
	"container/list"
	"net/url"
	"sync"
	"time"
)

type entry[V any] struct {
	key        string
	value      V
	expiration time.Time
}

// Cache is a thread-safe, bounded, TTL-based in-memory cache with LRU
// eviction once the size bound is reached. It is parameterised on value type
// so the list and detail partitions can hold different payloads.
// Entries are always replaced or removed whole.
type Cache[V any] struct {
	mu         sync.Mutex
	data       map[string]*list.Element
	order      *list.List // front = most recently used
	ttl        time.Duration
	maxEntries int
}

// New creates a bounded TTL cache. maxEntries <= 0 means unbounded.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		data:       make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns a cached value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	ent := el.Value.(*entry[V])
	if time.Now().After(ent.expiration) {
		// Expired — remove and miss
		c.removeElement(el)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// Set inserts or overwrites a cache entry with the cache's TTL, evicting the
// least recently used entry if the bound is reached.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.data[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.expiration = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	if c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	el := c.order.PushFront(&entry[V]{
		key:        key,
		value:      value,
		expiration: time.Now().Add(c.ttl),
	})
	c.data[key] = el
}

// Delete removes a single entry. Deleting an absent key is a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.data[key]; ok {
		c.removeElement(el)
	}
}

// Clear wipes the entire cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of entries currently held, including any expired
// entries not yet evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[V]) removeElement(el *list.Element) {
	ent := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.data, ent.key)
}

// ListKey canonicalizes a query-parameter set into a cache key. Parameters
// are sorted by name so equivalent requests with differently-ordered
// parameters share an entry; keys and values are percent-escaped so
// distinct parameter sets never collide on the delimiters.
func ListKey(params map[string]string) string {
	if len(params) == 0 {
		return "list:"
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "list:" + q.Encode()
}
