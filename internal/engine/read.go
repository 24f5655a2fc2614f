// File: internal/engine/read.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/protocol"
)

// readLoop issues one read per arm. The reference taken before the read is
// handed to the pipeline, which drops it and re-arms when done.
func (e *Engine) readLoop(s *Session) {
	defer e.readers.Done()
	for {
		select {
		case <-s.armed:
		case <-s.done:
			return
		}
		if !s.retain() {
			return
		}
		buf := s.readTarget()
		if len(buf) == 0 {
			s.release()
			e.inputFailure(s, api.NewError(api.ErrCodeInternal, "read buffer has no room"))
			return
		}
		n, err := s.conn.Read(buf)
		e.readCompleted(s, n, err)
	}
}

func (s *Session) readTarget() []byte {
	if s.big != nil {
		return s.big[len(s.big):cap(s.big)]
	}
	return s.readBuf.Writable()
}

// readCompleted handles one read result. Bytes that arrive together with an
// error are processed before the error closes the session.
func (e *Engine) readCompleted(s *Session, n int, err error) {
	if n <= 0 && err != nil {
		s.release()
		e.readFailed(s, err)
		return
	}
	s.pending = n
	s.readErr = err
	switch e.gate.admit(s) {
	case admitRun:
		e.inline.Add(1)
		e.runWithPermit(s)
	case admitRejected:
		s.release()
	}
}

// readFailed closes s after a read error. A peer close is not an exception.
func (e *Engine) readFailed(s *Session, err error) {
	switch {
	case s.Status() == api.StatusClosed:
	case errors.Is(err, io.EOF):
		s.finalize()
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		s.finalize()
	default:
		e.inputFailure(s, api.NewError(api.ErrCodeInputFailure, "read failed").Wrap(err))
	}
}

// runWithPermit runs pipelines while holding one read permit, first for s
// and then for up to DrainBatch-1 sessions taken from the backlog head.
func (e *Engine) runWithPermit(s *Session) {
	for done := 1; s != nil; done++ {
		e.pipeline(s)
		s = e.gate.handoff(done < e.drainBatch)
	}
}

// watch moves backlog entries onto the executor whenever a permit is free.
func (e *Engine) watch() {
	defer close(e.watcherDone)
	for {
		s, ok := e.gate.take()
		if !ok {
			return
		}
		e.deferred.Add(1)
		if err := e.exec.Submit(func() { e.runWithPermit(s) }); err != nil {
			e.runWithPermit(s)
		}
	}
}

// pipeline processes the last completed read of s and owns one reference.
func (e *Engine) pipeline(s *Session) {
	cur := e.inflight.Add(1)
	for {
		peak := e.peak.Load()
		if cur <= peak || e.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	defer e.inflight.Add(-1)
	defer s.release()

	n, readErr := s.pending, s.readErr
	s.pending, s.readErr = 0, nil
	if s.Status() == api.StatusClosed {
		return
	}
	if err := e.consume(s, n); err != nil {
		e.inputFailure(s, err)
		return
	}
	if readErr != nil {
		e.readFailed(s, readErr)
		return
	}
	if s.Status() == api.StatusEnabled {
		s.arm()
	}
}

// consume feeds n new bytes through the filter chain and the decoder.
func (e *Engine) consume(s *Session, n int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.NewError(api.ErrCodeProcessFailure, "read pipeline panicked").
				WithContext("panic", fmt.Sprint(r))
		}
	}()

	if s.big != nil {
		s.big = s.big[:len(s.big)+n]
		allow := e.chain.BeforeRead(s, n)
		if len(s.big) < cap(s.big) {
			return nil
		}
		big := s.big
		s.big = nil
		res, _, err := protocol.Next(e.proto, big)
		if err != nil {
			return err
		}
		if res.Status != api.Complete {
			return api.NewError(api.ErrCodeDecodeFailure, "assembled frame did not decode").
				WithContext("need", res.Need).WithContext("have", len(big))
		}
		return e.deliver(s, res.Frame, allow)
	}

	s.readBuf.Advance(n)
	allow := e.chain.BeforeRead(s, n)
	for {
		res, skipped, err := protocol.Next(e.proto, s.readBuf.Readable())
		if err != nil {
			return err
		}
		if skipped > 0 {
			s.readBuf.Consume(skipped)
		}
		if res.Status != api.Complete {
			if res.Need > s.readBuf.Cap() {
				have := s.readBuf.Readable()
				s.big = append(make([]byte, 0, res.Need), have...)
				s.readBuf.Consume(len(have))
			}
			s.readBuf.Compact()
			return nil
		}
		s.readBuf.Consume(res.Consumed)
		if err := e.deliver(s, res.Frame, allow); err != nil {
			return err
		}
		if s.Status() == api.StatusClosed {
			return nil
		}
	}
}

func (e *Engine) deliver(s *Session, f api.Frame, allow bool) error {
	e.chain.AfterRead(s, f)
	if !allow {
		return nil
	}
	if err := e.proc.Process(s, f); err != nil {
		return api.NewError(api.ErrCodeProcessFailure, "message processor failed").Wrap(err)
	}
	return nil
}

// inputFailure reports err once and closes s without flushing.
func (e *Engine) inputFailure(s *Session, err error) {
	if s.Status() == api.StatusClosed {
		return
	}
	e.log.Debug().Uint32("session", s.id).Err(err).Msg("input failure")
	e.chain.OnEvent(s, api.EventInputException, err)
	s.finalize()
}
