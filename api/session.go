// File: api/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session is the per-connection handle handed to filters and processors.

package api

import "net"

// Session abstracts one connected byte stream driven by the engine.
type Session interface {
	// ID returns the process-unique session serial.
	ID() uint32

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// Status reports the current lifecycle state.
	Status() Status

	// Write encodes f and queues it for sending, waiting while the
	// outbound queue is full.
	Write(f Frame) error

	// TryWrite is Write without waiting; a full queue yields iox.ErrWouldBlock.
	TryWrite(f Frame) error

	// Close tears the session down. A graceful close flushes queued
	// writes first. Close is idempotent.
	Close(graceful bool) error

	// Done is closed once the session reaches StatusClosed and the
	// SESSION_CLOSED event has been delivered.
	Done() <-chan struct{}

	// Attr returns a business attribute bound to the session.
	Attr(key string) (any, bool)
	// SetAttr binds a business attribute to the session.
	SetAttr(key string, value any)
}
