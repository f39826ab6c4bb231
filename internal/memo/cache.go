package memo

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds a cache built without WithMaxEntries.
const DefaultMaxEntries = 1024

type options struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithMaxEntries bounds the number of entries. Values below 1 select
// DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultMaxEntries
		}
		o.maxEntries = n
	}
}

// WithTTL expires entries older than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// Cache is a bounded LRU memo table.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	flight  singleflight.Group
	opts    options

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// New returns an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		opts:    o,
	}
}

// Get returns the value stored under key and marks it most recently used.
// Expired entries are removed and reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e) {
		c.removeLocked(el)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets.Add(1)
	now := c.opts.now()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[V])
		e.value, e.storedAt = value, now
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.opts.maxEntries {
		c.removeLocked(c.lru.Back())
		c.evictions.Add(1)
	}
	c.entries[key] = c.lru.PushFront(&entry[V]{key: key, value: value, storedAt: now})
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its value when compute reports it storable. Concurrent callers for the
// same missing key share one compute call. hit reports whether the value
// came from the cache.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, bool)) (value V, hit bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}
	type outcome struct {
		value V
		store bool
	}
	res, _, _ := c.flight.Do(key, func() (any, error) {
		v, store := compute()
		if store {
			c.Set(key, v)
		}
		return outcome{v, store}, nil
	})
	return res.(outcome).value, false
}

// Delete removes key. It reports whether an entry was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if ok {
		c.removeLocked(el)
	}
	return ok
}

// Purge removes every entry. Counters are kept.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.opts.ttl > 0 && c.opts.now().Sub(e.storedAt) > c.opts.ttl
}

// removeLocked unlinks el. Caller holds c.mu.
func (c *Cache[V]) removeLocked(el *list.Element) {
	e := el.Value.(*entry[V])
	c.lru.Remove(el)
	delete(c.entries, e.key)
}
