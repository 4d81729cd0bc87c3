package quote

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCacheHitWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewCache(5*time.Second, clock.now)

	c.Put("SPY", 408.50)
	clock.advance(4 * time.Second)

	price, ok := c.Get("SPY")
	if !ok {
		t.Fatal("expected cache hit within TTL")
	}
	if price != 408.50 {
		t.Errorf("price = %g, want 408.50", price)
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewCache(5*time.Second, clock.now)

	c.Put("SPY", 408.50)
	clock.advance(5 * time.Second)

	if _, ok := c.Get("SPY"); ok {
		t.Error("expected cache miss after TTL")
	}
}

func TestCacheReplaceWholesale(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewCache(5*time.Second, clock.now)

	c.Put("SPY", 408.50)
	clock.advance(3 * time.Second)
	c.Put("SPY", 409.10)
	clock.advance(3 * time.Second)

	// The refresh reset the entry's clock, so it is still fresh.
	price, ok := c.Get("SPY")
	if !ok {
		t.Fatal("expected cache hit after refresh")
	}
	if price != 409.10 {
		t.Errorf("price = %g, want 409.10", price)
	}
}

func TestCacheMissUnknownSymbol(t *testing.T) {
	c := NewCache(5*time.Second, nil)
	if _, ok := c.Get("QQQ"); ok {
		t.Error("expected miss for unknown symbol")
	}
}

func TestConnCache(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewConnCache[string](5*time.Minute, clock.now)

	c.Put("alpaca:key", "conn-1")

	conn, ok := c.Get("alpaca:key")
	if !ok || conn != "conn-1" {
		t.Fatalf("Get = %q, %v; want conn-1, true", conn, ok)
	}

	clock.advance(5 * time.Minute)
	if _, ok := c.Get("alpaca:key"); ok {
		t.Error("expected expired connection to miss")
	}
}
