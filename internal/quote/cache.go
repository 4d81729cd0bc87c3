// Package quote provides short-TTL caches that bound the rate of external
// broker calls: a last-price cache and a broker connection cache. Both are
// explicitly owned objects passed into their users rather than package-level
// state, so tests can inject a fake clock.
package quote

import (
	"sync"
	"time"
)

type entry struct {
	price      float64
	capturedAt time.Time
}

// Cache is a TTL cache of the last-known price per symbol. Entries are
// replaced wholesale on refresh, never partially updated. The zero TTL
// disables caching entirely.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

// DefaultTTL bounds how long a quoted price may be reused.
const DefaultTTL = 5 * time.Second

// NewCache creates a Cache with the given TTL. now may be nil, in which case
// time.Now is used; tests pass a fake clock.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, m: make(map[string]entry)}
}

// Get returns the cached price for symbol if a fresh entry exists.
func (c *Cache) Get(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[symbol]
	if !ok || c.now().Sub(e.capturedAt) >= c.ttl {
		return 0, false
	}
	return e.price, true
}

// Put records the latest price for symbol, replacing any previous entry.
func (c *Cache) Put(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[symbol] = entry{price: price, capturedAt: c.now()}
}

// ConnCache caches live broker sessions keyed by credentials or host:port so
// that accounts sharing a gateway reuse one connection. Lifetime 5 minutes,
// matching broker session tolerance.
type ConnCache[T any] struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]connEntry[T]
}

type connEntry[T any] struct {
	conn T
	at   time.Time
}

// ConnTTL is how long a cached broker session is considered reusable.
const ConnTTL = 5 * time.Minute

// NewConnCache creates a ConnCache. now may be nil for the real clock.
func NewConnCache[T any](ttl time.Duration, now func() time.Time) *ConnCache[T] {
	if now == nil {
		now = time.Now
	}
	return &ConnCache[T]{ttl: ttl, now: now, m: make(map[string]connEntry[T])}
}

// Get returns the cached connection for key if it is still fresh.
func (c *ConnCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.conn, true
}

// Put stores conn under key, replacing any existing entry.
func (c *ConnCache[T]) Put(key string, conn T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = connEntry[T]{conn: conn, at: c.now()}
}
