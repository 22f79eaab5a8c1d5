package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("quote_AAPL", 187.5)
	v, ok := c.Get("quote_AAPL")
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(float64) != 187.5 {
		t.Errorf("value = %v", v)
	}

	if _, ok := c.Get("quote_MSFT"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	cur := base
	c.now = func() time.Time { return cur }

	c.Set("news_TSLA", "articles")

	cur = base.Add(59 * time.Second)
	if _, ok := c.Get("news_TSLA"); !ok {
		t.Error("entry expired early")
	}

	cur = base.Add(61 * time.Second)
	if _, ok := c.Get("news_TSLA"); ok {
		t.Error("entry outlived its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after expiry", c.Len())
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after clear", c.Len())
	}
}
