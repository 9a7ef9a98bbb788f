// Package systime provides a wall-clock instant with millisecond precision
// that works on hosts without a full clock API, including js/wasm sandboxes.
//
// An Instant is a signed count of milliseconds since the Unix epoch. It is not
// monotonic: the host clock can be adjusted, so a later sample may compare
// before an earlier one. DurationSince reports that case as an *OrderingError
// instead of returning a negative duration.
package systime

import (
	"math"
	"time"
)

// UnixEpoch is the instant with count 0, 1970-01-01T00:00:00Z.
var UnixEpoch = Instant{}

// maxDurationMillis is the largest millisecond count a time.Duration can hold.
const maxDurationMillis = math.MaxInt64 / int64(time.Millisecond)

// Instant is an absolute point in time stored as milliseconds since the Unix
// epoch. Negative counts are instants before the epoch. Instants are values:
// compare them with == or Compare, and replace them with t = t.Add(d).
type Instant struct {
	ms int64
}

// Epoch returns UnixEpoch.
func Epoch() Instant {
	return UnixEpoch
}

// UnixMilli returns the instant ms milliseconds after the Unix epoch.
// Any count is accepted.
func UnixMilli(ms int64) Instant {
	return Instant{ms: ms}
}

// Now samples the host clock. The strategy is selected at build time:
// time.Now on native targets, Date.now on js/wasm.
func Now() Instant {
	return now()
}

// UnixMilli returns the millisecond count since the Unix epoch.
func (t Instant) UnixMilli() int64 {
	return t.ms
}

// DurationSince returns the time elapsed from earlier to t.
// If earlier is after t the result is an *OrderingError carrying how much
// later earlier is. It panics if the magnitude does not fit a time.Duration.
func (t Instant) DurationSince(earlier Instant) (time.Duration, error) {
	if t.ms < earlier.ms {
		return 0, &OrderingError{d: fromMillis(uint64(earlier.ms) - uint64(t.ms))}
	}
	return fromMillis(uint64(t.ms) - uint64(earlier.ms)), nil
}

// WithinDurationRange reports whether the distance between t and u fits a
// time.Duration, that is whether DurationSince can be called without panic.
func (t Instant) WithinDurationRange(u Instant) bool {
	if t.ms < u.ms {
		t, u = u, t
	}
	return uint64(t.ms)-uint64(u.ms) <= uint64(maxDurationMillis)
}

// Elapsed is Now().DurationSince(t). It fails when t is later than the
// sampled current time, either because t is in the future or the host clock
// moved backward.
func (t Instant) Elapsed() (time.Duration, error) {
	return Now().DurationSince(t)
}

// CheckedAdd returns t+d, truncating d to whole milliseconds.
// ok is false if the result overflows the int64 count.
func (t Instant) CheckedAdd(d time.Duration) (Instant, bool) {
	b := d.Milliseconds()
	c := t.ms + b
	if (b > 0 && c < t.ms) || (b < 0 && c > t.ms) {
		return Instant{}, false
	}
	return Instant{ms: c}, true
}

// CheckedSub returns t-d, truncating d to whole milliseconds.
// ok is false if the result overflows the int64 count.
func (t Instant) CheckedSub(d time.Duration) (Instant, bool) {
	b := d.Milliseconds()
	c := t.ms - b
	if (b > 0 && c > t.ms) || (b < 0 && c < t.ms) {
		return Instant{}, false
	}
	return Instant{ms: c}, true
}

// Add returns t+d. The caller guarantees the result is representable;
// Add panics otherwise. See CheckedAdd for a version that does not panic.
func (t Instant) Add(d time.Duration) Instant {
	r, ok := t.CheckedAdd(d)
	if !ok {
		panic("overflow when adding duration to instant")
	}
	return r
}

// Sub returns t-d. The caller guarantees the result is representable;
// Sub panics otherwise. See CheckedSub for a version that does not panic.
func (t Instant) Sub(d time.Duration) Instant {
	r, ok := t.CheckedSub(d)
	if !ok {
		panic("overflow when subtracting duration from instant")
	}
	return r
}

// Before reports whether t is before u.
func (t Instant) Before(u Instant) bool {
	return t.ms < u.ms
}

// After reports whether t is after u.
func (t Instant) After(u Instant) bool {
	return t.ms > u.ms
}

// Equal reports whether t and u have the same count.
func (t Instant) Equal(u Instant) bool {
	return t.ms == u.ms
}

// Compare returns -1 if t is before u, +1 if after, 0 if equal.
func (t Instant) Compare(u Instant) int {
	switch {
	case t.ms < u.ms:
		return -1
	case t.ms > u.ms:
		return 1
	}
	return 0
}

func fromMillis(m uint64) time.Duration {
	if m > uint64(maxDurationMillis) {
		panic("systime: duration between instants overflows time.Duration")
	}
	return time.Duration(m) * time.Millisecond
}
