// File: api/protocol.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol contract: a stateless framing codec shared by many sessions.

package api

// DecodeStatus is the three-way outcome of a decode attempt.
type DecodeStatus int

const (
	// Incomplete means more bytes are required; nothing was consumed.
	Incomplete DecodeStatus = iota
	// Desynced means no frame starts at the current offset; skip and retry.
	Desynced
	// Complete means one frame was decoded.
	Complete
)

func (s DecodeStatus) String() string {
	switch s {
	case Incomplete:
		return "incomplete"
	case Desynced:
		return "desynced"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// DecodeResult reports what Decode found at the head of the input.
type DecodeResult struct {
	Status DecodeStatus
	// Frame is set when Status is Complete. Its slices never alias the input.
	Frame Frame
	// Consumed is the number of input bytes to drop: the frame length for
	// Complete, the skip width for Desynced, zero for Incomplete.
	Consumed int
	// Need is the total frame length once a header has been parsed and
	// Status is Incomplete; zero when unknown.
	Need int
}

// Protocol converts between raw bytes and frames. Implementations hold no
// per-connection state.
type Protocol interface {
	// Name is the registry name of the codec.
	Name() string
	// Decode inspects data from its start. A non-nil error is fatal for the
	// stream (for example ErrContentTooLarge).
	Decode(data []byte) (DecodeResult, error)
	// Encode appends the wire form of f to dst.
	Encode(dst []byte, f Frame) ([]byte, error)
	// MaxContentLength is the enforced attachment+data limit.
	MaxContentLength() int
}
