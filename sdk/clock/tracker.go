package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/gwos/walltime/sdk/log"
	"github.com/gwos/walltime/sdk/systime"
)

// Reading is one classified sample of a Clock.
type Reading struct {
	At systime.Instant
	// Step is the distance from the previous sample, zero for the first one.
	// When Regressed is set it is how far the clock went backward.
	Step      time.Duration
	Regressed bool
}

// Tracker samples a Clock and detects when it moves backward.
type Tracker struct {
	mu          sync.Mutex
	clock       Clock
	last        Reading
	seen        bool
	regressions uint64
}

// NewTracker returns a Tracker over c.
func NewTracker(c Clock) *Tracker {
	return &Tracker{clock: c}
}

// Sample reads the clock and compares it to the previous sample.
// Reads are serialized so samples are committed in the order taken.
func (t *Tracker) Sample() Reading {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()

	r := Reading{At: now}
	if t.seen {
		d, err := now.DurationSince(t.last.At)
		var oe *systime.OrderingError
		if errors.As(err, &oe) {
			r.Step, r.Regressed = oe.Duration(), true
			t.regressions++
			log.Logger.Warn("clock moved backward",
				"previous", t.last.At.String(), "current", now.String(), "by", oe.Duration())
		} else {
			r.Step = d
		}
	}
	t.last, t.seen = r, true
	return r
}

// Last returns the latest reading; ok is false before the first Sample.
func (t *Tracker) Last() (r Reading, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// Regressions returns how many samples went backward so far.
func (t *Tracker) Regressions() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.regressions
}
