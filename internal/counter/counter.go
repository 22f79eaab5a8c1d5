package counter

import (
	"sync"
	"time"
)

// Counts is a snapshot of how many lookups hit the network versus the cache.
type Counts struct {
	API   int64
	Cache int64
	Total int64
}

// RequestCounter tracks API-versus-cache hits for status display.
type RequestCounter struct {
	mu        sync.Mutex
	api       int64
	cache     int64
	lastReset time.Time
	now       func() time.Time
}

func New() *RequestCounter {
	c := &RequestCounter{now: time.Now}
	c.lastReset = c.now()
	return c
}

func (c *RequestCounter) IncAPI() {
	c.mu.Lock()
	c.api++
	c.mu.Unlock()
}

func (c *RequestCounter) IncCache() {
	c.mu.Lock()
	c.cache++
	c.mu.Unlock()
}

func (c *RequestCounter) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counts{API: c.api, Cache: c.cache, Total: c.api + c.cache}
}

func (c *RequestCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.api, c.cache = 0, 0
	c.lastReset = c.now()
}

func (c *RequestCounter) TimeSinceReset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.lastReset)
}
