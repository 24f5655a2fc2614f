//go:build !linux

// File: transport/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"syscall"
)

// reuseControl is a no-op; Go already sets SO_REUSEADDR on Unix listeners.
func reuseControl(_, _ string, _ syscall.RawConn) error { return nil }

func setNoDelay(tc *net.TCPConn, on bool) error { return tc.SetNoDelay(on) }
