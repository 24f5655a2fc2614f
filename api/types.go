// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// Status enumerates the lifecycle state of a session.
// Transitions are monotonic: Enabled -> Closing -> Closed.
type Status int32

const (
	StatusEnabled Status = iota
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "enabled"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Frame is one complete application message delimited by the framing protocol.
type Frame struct {
	Attachment []byte
	Data       []byte
}

// Size returns the content length counted against the max content length.
func (f Frame) Size() int {
	return len(f.Attachment) + len(f.Data)
}
