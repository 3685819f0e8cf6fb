// Package clock provides an injectable time source.
//
// Production code holds a Clock instead of calling time.Now directly:
//
//	log := journey.NewLog(clock.Real())
//
// Tests inject Fake, which only moves when told to:
//
//	c := clock.Fake(time.Unix(1700000000, 0))
//	log := journey.NewLog(c)
//	c.Advance(time.Second)
package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time for testability.
type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Seconds converts t to floating point seconds since the Unix epoch with
// millisecond precision, the timestamp unit journey events carry.
func Seconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}

// Fake returns a FakeClock stopped at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set jumps the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
