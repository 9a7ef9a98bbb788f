package systime

import "time"

// OrderingError is returned by DurationSince when the earlier instant is
// actually later than the receiver.
type OrderingError struct {
	d time.Duration
}

// Duration returns how much later the second instant was. It is never negative.
func (e *OrderingError) Duration() time.Duration {
	return e.d
}

func (e *OrderingError) Error() string {
	return "second time provided was later than self"
}
