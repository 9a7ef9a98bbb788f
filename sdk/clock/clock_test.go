package clock

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gwos/walltime/sdk/log"
	"github.com/gwos/walltime/sdk/systime"
)

func TestSystem(t *testing.T) {
	before := time.Now().UnixMilli()
	got := System{}.Now().UnixMilli()
	after := time.Now().UnixMilli()
	if got < before || got > after {
		t.Errorf("System.Now() = %d, want within [%d, %d]", got, before, after)
	}
}

func TestFake(t *testing.T) {
	start := systime.UnixMilli(1609372800000)

	t.Run("returns fixed instant", func(t *testing.T) {
		c := NewFake(start)
		if c.Now() != start || c.Now() != start {
			t.Errorf("Now() = %v, want %v", c.Now(), start)
		}
	})

	t.Run("advance moves both ways", func(t *testing.T) {
		c := NewFake(start)
		c.Advance(time.Hour)
		if want := systime.UnixMilli(1609376400000); c.Now() != want {
			t.Errorf("Now() = %v, want %v", c.Now(), want)
		}
		c.Advance(-2 * time.Hour)
		if want := systime.UnixMilli(1609369200000); c.Now() != want {
			t.Errorf("Now() = %v, want %v", c.Now(), want)
		}
	})

	t.Run("set changes instant", func(t *testing.T) {
		c := NewFake(start)
		c.Set(systime.Epoch())
		if c.Now() != systime.Epoch() {
			t.Errorf("Now() = %v, want epoch", c.Now())
		}
	})
}

func TestTracker(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	defer func() { log.Logger = saved }()

	c := NewFake(systime.UnixMilli(1000))
	tr := NewTracker(c)

	if _, ok := tr.Last(); ok {
		t.Fatal("Last() ok before first Sample")
	}

	steps := []struct {
		advance       time.Duration
		wantStep      time.Duration
		wantRegressed bool
	}{
		{0, 0, false},
		{time.Second, time.Second, false},
		{0, 0, false},
		{-250 * time.Millisecond, 250 * time.Millisecond, true},
		{10 * time.Millisecond, 10 * time.Millisecond, false},
	}
	for i, s := range steps {
		c.Advance(s.advance)
		r := tr.Sample()
		if r.At != c.Now() || r.Step != s.wantStep || r.Regressed != s.wantRegressed {
			t.Errorf("step %d: Sample() = %+v, want step %v regressed %v", i, r, s.wantStep, s.wantRegressed)
		}
		if last, ok := tr.Last(); !ok || last != r {
			t.Errorf("step %d: Last() = %+v, %v", i, last, ok)
		}
	}

	if tr.Regressions() != 1 {
		t.Errorf("Regressions() = %d, want 1", tr.Regressions())
	}
	if !strings.Contains(buf.String(), "clock moved backward") {
		t.Errorf("regression was not logged: %q", buf.String())
	}
}

// ticker moves forward by one millisecond on every read.
type ticker struct {
	ms atomic.Int64
}

func (c *ticker) Now() systime.Instant {
	return systime.UnixMilli(c.ms.Add(1))
}

func TestTrackerConcurrent(t *testing.T) {
	c := &ticker{}
	tr := NewTracker(c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if r := tr.Sample(); r.Regressed {
					t.Errorf("Sample() = %+v, regressed on a forward-only clock", r)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := tr.Regressions(); n != 0 {
		t.Errorf("Regressions() = %d, want 0", n)
	}
	if last, ok := tr.Last(); !ok || last.At != systime.UnixMilli(8000) {
		t.Errorf("Last() = %+v, %v; want at 8000", last, ok)
	}
}
