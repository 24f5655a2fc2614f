// File: filter/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
)

// Stats counts sessions, frames and bytes with atomics.
type Stats struct {
	Base

	opened, closed      atomic.Int64
	framesIn, framesOut atomic.Int64
	bytesIn, bytesOut   atomic.Int64
	inErrs, outErrs     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats counters.
type Snapshot struct {
	Opened, Closed, Active int64
	FramesIn, FramesOut    int64
	BytesIn, BytesOut      int64
	InputErrors            int64
	OutputErrors           int64
}

// NewStats returns zeroed counters.
func NewStats() *Stats { return &Stats{} }

func (st *Stats) BeforeRead(_ api.Session, n int) bool {
	st.bytesIn.Add(int64(n))
	return true
}

func (st *Stats) AfterRead(api.Session, api.Frame) { st.framesIn.Add(1) }

func (st *Stats) BeforeWrite(api.Session, api.Frame) bool {
	st.framesOut.Add(1)
	return true
}

func (st *Stats) AfterWrite(_ api.Session, n int) { st.bytesOut.Add(int64(n)) }

func (st *Stats) OnEvent(_ api.Session, ev api.Event, _ error) {
	switch ev {
	case api.EventNewSession:
		st.opened.Add(1)
	case api.EventSessionClosed:
		st.closed.Add(1)
	case api.EventInputException:
		st.inErrs.Add(1)
	case api.EventOutputException:
		st.outErrs.Add(1)
	}
}

// Snapshot copies the counters.
func (st *Stats) Snapshot() Snapshot {
	s := Snapshot{
		Opened:       st.opened.Load(),
		Closed:       st.closed.Load(),
		FramesIn:     st.framesIn.Load(),
		FramesOut:    st.framesOut.Load(),
		BytesIn:      st.bytesIn.Load(),
		BytesOut:     st.bytesOut.Load(),
		InputErrors:  st.inErrs.Load(),
		OutputErrors: st.outErrs.Load(),
	}
	s.Active = s.Opened - s.Closed
	return s
}
