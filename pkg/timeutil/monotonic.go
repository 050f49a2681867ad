package timeutil

import (
	"sync"
	"time"
)

// Resolution is the precision message timestamps are stored with. PostgreSQL
// keeps microseconds, so every store works at that grain.
const Resolution = time.Microsecond

// MonotonicClock hands out strictly increasing UTC timestamps even when the
// wall clock steps backwards.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// NewMonotonicClockWith is used by tests to drive the underlying source.
func NewMonotonicClockWith(now func() time.Time) *MonotonicClock {
	return &MonotonicClock{now: now}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(Resolution)
	if !t.After(c.last) {
		t = c.last.Add(Resolution)
	}
	c.last = t
	return t
}
