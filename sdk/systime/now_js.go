//go:build js && wasm

package systime

import "syscall/js"

// now reads Date.now() from the JavaScript host, which reports
// milliseconds since the Unix epoch as a float64.
func now() Instant {
	return UnixMilli(int64(js.Global().Get("Date").Call("now").Float()))
}
