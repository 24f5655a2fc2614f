// File: pool/page_other.go
//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// allocPage falls back to the Go heap; the GC reclaims released pages.
func allocPage(size int) ([]byte, func([]byte)) {
	return make([]byte, size), nil
}
