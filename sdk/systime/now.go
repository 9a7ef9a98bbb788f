//go:build !js

package systime

import "time"

func now() Instant {
	return FromTime(time.Now())
}
