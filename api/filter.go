// File: api/filter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Filter is the pluggable hook set shared by every session of a listener.

package api

import "net"

// Filter observes the read/write pipeline and session lifecycle.
//
// BeforeRead and BeforeWrite may veto by returning false. A vetoed read still
// decodes and runs AfterRead hooks but skips the MessageProcessor; a vetoed
// write is dropped and Write reports ErrWriteVetoed. OnEvent is delivered to
// every filter regardless of any veto.
type Filter interface {
	// ShouldAccept decides whether an accepted connection becomes a session.
	ShouldAccept(conn net.Conn) bool
	// BeforeRead runs once per raw read completion of n bytes.
	BeforeRead(s Session, n int) bool
	// AfterRead runs once per decoded frame.
	AfterRead(s Session, f Frame)
	// BeforeWrite runs before a frame is encoded and queued.
	BeforeWrite(s Session, f Frame) bool
	// AfterWrite runs once per physical write completion of n bytes.
	AfterWrite(s Session, n int)
	// OnEvent receives lifecycle events; err is set for exception events.
	OnEvent(s Session, ev Event, err error)
}
