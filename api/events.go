// File: api/events.go
// Package api defines session lifecycle events.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Event identifies a session lifecycle notification fanned out to filters.
type Event int

const (
	// EventNewSession fires once the session is registered and reading.
	EventNewSession Event = iota
	// EventSessionClosing fires when a graceful close starts draining writes.
	EventSessionClosing
	// EventSessionClosed fires exactly once when the session reaches Closed.
	EventSessionClosed
	// EventInputException reports a read, decode or dispatch failure.
	EventInputException
	// EventOutputException reports a write failure.
	EventOutputException
)

func (e Event) String() string {
	switch e {
	case EventNewSession:
		return "NEW_SESSION"
	case EventSessionClosing:
		return "SESSION_CLOSING"
	case EventSessionClosed:
		return "SESSION_CLOSED"
	case EventInputException:
		return "INPUT_EXCEPTION"
	case EventOutputException:
		return "OUTPUT_EXCEPTION"
	default:
		return "UNKNOWN"
	}
}
