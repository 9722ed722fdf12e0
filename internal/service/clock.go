package service

import (
	"sync"
	"time"
)

// recordClock hands out strictly increasing timestamps at the microsecond
// resolution postgres keeps, so records appended by this process never tie.
type recordClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *recordClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
