package errors

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
)

// define codes for MSWindows errors
const (
	WSAEADDRINUSE syscall.Errno = 10048
)

// define error categories for the API and the watchdog
var (
	ErrPermanent = errors.New("permanent error")
	ErrTransient = errors.New("transient error")

	ErrInvalidArgument = fmt.Errorf("%w: %v", ErrPermanent, "invalid argument")
	ErrUnrepresentable = fmt.Errorf("%w: %v", ErrPermanent, "instant is not representable")
	ErrClockRegressed  = fmt.Errorf("%w: %v", ErrTransient, "clock moved backward")
)

// IsErrorAddressInUse verifies error
func IsErrorAddressInUse(err error) bool {
	if runtime.GOOS == "windows" {
		return errors.Is(err, WSAEADDRINUSE)
	}
	return errors.Is(err, syscall.EADDRINUSE)
}
