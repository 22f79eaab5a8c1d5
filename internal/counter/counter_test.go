package counter

import (
	"sync"
	"testing"
	"time"
)

func TestCounts(t *testing.T) {
	c := New()

	c.IncAPI()
	c.IncAPI()
	c.IncCache()

	got := c.Counts()
	if got.API != 2 || got.Cache != 1 || got.Total != 3 {
		t.Errorf("Counts = %+v", got)
	}
}

func TestReset(t *testing.T) {
	c := New()
	base := time.Now()
	cur := base
	c.now = func() time.Time { return cur }

	c.IncAPI()
	cur = base.Add(time.Hour)
	c.Reset()

	if got := c.Counts(); got.Total != 0 {
		t.Errorf("Counts after reset = %+v", got)
	}
	cur = base.Add(time.Hour + time.Minute)
	if d := c.TimeSinceReset(); d != time.Minute {
		t.Errorf("TimeSinceReset = %v, want 1m", d)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncAPI()
			c.IncCache()
		}()
	}
	wg.Wait()

	if got := c.Counts(); got.API != 50 || got.Cache != 50 {
		t.Errorf("Counts = %+v", got)
	}
}
