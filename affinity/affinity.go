// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files guarded by build tags.

package affinity

import "errors"

// ErrUnsupported is returned where thread pinning is unavailable.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// Pin binds the calling OS thread to a logical CPU. Callers must hold the
// thread with runtime.LockOSThread for the pin to stay meaningful.
func Pin(cpu int) error {
	if cpu < 0 {
		return errors.New("affinity: negative cpu")
	}
	return pinPlatform(cpu)
}

// Allowed lists the CPUs the calling thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
