// Package clock provides injectable sources of systime instants.
package clock

import (
	"sync"
	"time"

	"github.com/gwos/walltime/sdk/systime"
)

// Clock provides the current instant.
type Clock interface {
	Now() systime.Instant
}

// System reads the host clock through systime.Now.
type System struct{}

// Now implements Clock interface
func (System) Now() systime.Instant {
	return systime.Now()
}

// Fake is a deterministic clock for tests and replays.
// Unlike the host clock it only moves when told to.
type Fake struct {
	mu      sync.Mutex
	current systime.Instant
}

// NewFake returns a Fake set to start.
func NewFake(start systime.Instant) *Fake {
	return &Fake{current: start}
}

// Now implements Clock interface
func (c *Fake) Now() systime.Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock by d. A negative d moves it backward,
// the way an adjusted host clock would. It panics on overflow.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set changes the clock to t.
func (c *Fake) Set(t systime.Instant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

var (
	_ Clock = System{}
	_ Clock = (*Fake)(nil)
)
