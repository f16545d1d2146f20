package engine

import (
	"math/rand"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Rand is the source of the efficiency roll.
type Rand interface {
	Float64() float64
}

// newRand returns a time-seeded source. Only the loop goroutine touches it.
func newRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// FixedRand always returns the same roll.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }
