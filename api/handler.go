// File: api/handler.go
// Package api defines MessageProcessor interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// MessageProcessor consumes fully decoded frames. It is invoked once per
// frame, in arrival order for a given session. A returned error is treated
// as an input failure and closes the session.
type MessageProcessor interface {
	Process(s Session, f Frame) error
}

// ProcessorFunc adapts a plain function to MessageProcessor.
type ProcessorFunc func(s Session, f Frame) error

// Process calls fn(s, f).
func (fn ProcessorFunc) Process(s Session, f Frame) error {
	return fn(s, f)
}
