package systime

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layout renders instants as RFC 3339 in UTC with milliseconds.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// FromTime converts t to an Instant.
// Sub-millisecond precision is dropped, rounding toward the earlier
// millisecond, and cannot be recovered by Time. It panics if t is outside
// the Instant range; see CheckedFromTime for a version that does not panic.
func FromTime(t time.Time) Instant {
	r, ok := CheckedFromTime(t)
	if !ok {
		panic("overflow when converting time to instant")
	}
	return r
}

// CheckedFromTime converts t to an Instant like FromTime.
// ok is false if t is outside the int64 millisecond range.
func CheckedFromTime(t time.Time) (Instant, bool) {
	sec, frac := t.Unix(), int64(t.Nanosecond())/int64(time.Millisecond)
	if sec >= 0 {
		if sec > math.MaxInt64/1000 {
			return Instant{}, false
		}
		base := sec * 1000
		if base > math.MaxInt64-frac {
			return Instant{}, false
		}
		return Instant{ms: base + frac}, true
	}
	/* count down from the next whole second so sec*1000 cannot overflow */
	if sec+1 < math.MinInt64/1000 {
		return Instant{}, false
	}
	base, rest := (sec+1)*1000, 1000-frac
	if base < math.MinInt64+rest {
		return Instant{}, false
	}
	return Instant{ms: base - rest}, true
}

// Time returns t as a time.Time in UTC.
func (t Instant) Time() time.Time {
	return time.UnixMilli(t.ms).UTC()
}

// String implements fmt.Stringer
func (t Instant) String() string {
	return t.Time().Format(Layout)
}

// Parse accepts either a decimal millisecond count or an RFC 3339 timestamp.
// Years outside 0000-9999 are accepted in the form String writes them,
// like "10000-01-01T00:00:00.000Z" or "-0001-12-31T23:59:59.999Z".
func Parse(s string) (Instant, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var ok bool
		if t, ok = parseWideYear(s); !ok {
			return Instant{}, fmt.Errorf("systime: cannot parse %q as instant: %w", s, err)
		}
	}
	r, ok := CheckedFromTime(t)
	if !ok {
		return Instant{}, fmt.Errorf("systime: %q is out of instant range", s)
	}
	return r, nil
}

// maxWideYear bounds years beyond the Instant range, about 292 million
// years either side of the epoch.
const maxWideYear = 300_000_000

// parseWideYear parses an RFC 3339 timestamp whose year has more than four
// digits or a minus sign, which time.Parse rejects.
func parseWideYear(s string) (time.Time, bool) {
	if len(s) < 2 {
		return time.Time{}, false
	}
	i := strings.IndexByte(s[1:], '-') + 1
	if i <= 0 {
		return time.Time{}, false
	}
	digits := strings.TrimPrefix(s[:i], "-")
	if len(digits) < 4 || (len(digits) == 4 && s[0] != '-') {
		return time.Time{}, false
	}
	if _, err := strconv.ParseUint(digits, 10, 64); err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(s[:i])
	if err != nil || year > maxWideYear || year < -maxWideYear {
		return time.Time{}, false
	}
	/* 2000 is a leap year, so February 29 survives until the year is applied */
	t, err := time.Parse(time.RFC3339Nano, "2000"+s[i:])
	if err != nil {
		return time.Time{}, false
	}
	w := t.AddDate(year-2000, 0, 0)
	if w.Month() != t.Month() {
		return time.Time{}, false
	}
	return w, true
}

// MarshalJSON implements json.Marshaler.
// The count is quoted to survive JavaScript number precision.
func (t Instant) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 22)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, t.ms, 10)
	return append(buf, '"'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Both a quoted count and a bare number are accepted; null is a no-op.
func (t *Instant) UnmarshalJSON(input []byte) error {
	if bytes.Equal(input, []byte("null")) {
		return nil
	}
	ms, err := strconv.ParseInt(string(bytes.Trim(input, `"`)), 10, 64)
	if err != nil {
		return fmt.Errorf("systime: cannot unmarshal %s as instant: %w", input, err)
	}
	*t = UnixMilli(ms)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (t Instant) MarshalText() ([]byte, error) {
	return strconv.AppendInt(nil, t.ms, 10), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Instant) UnmarshalText(input []byte) error {
	v, err := Parse(string(input))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
