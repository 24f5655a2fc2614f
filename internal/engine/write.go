// File: internal/engine/write.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"code.hybscloud.com/iox"

	"github.com/momentics/hioload-aio/api"
)

// Write encodes f and queues it, backing off while the queue is full.
func (s *Session) Write(f api.Frame) error { return s.write(f, true) }

// TryWrite is Write that reports iox.ErrWouldBlock instead of waiting.
func (s *Session) TryWrite(f api.Frame) error { return s.write(f, false) }

func (s *Session) write(f api.Frame, wait bool) error {
	if s.Status() != api.StatusEnabled {
		return api.ErrSessionClosed
	}
	e := s.eng
	if !e.chain.BeforeWrite(s, f) {
		return api.ErrWriteVetoed
	}
	wire, err := e.proto.Encode(nil, f)
	if err != nil {
		return err
	}
	var bo iox.Backoff
	for {
		err = s.enqueue(wire)
		if err == nil {
			break
		}
		if !wait || !iox.IsWouldBlock(err) {
			return err
		}
		bo.Wait()
	}
	e.startWriter(s)
	return nil
}

func (s *Session) enqueue(wire []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.Status() != api.StatusEnabled {
		return api.ErrSessionClosed
	}
	if s.outq.Length() >= s.eng.queueCap {
		return iox.ErrWouldBlock
	}
	s.outq.Add(wire)
	return nil
}

// startWriter claims the in-flight write guard and runs a flush.
func (e *Engine) startWriter(s *Session) {
	if !s.writing.CompareAndSwap(false, true) {
		return
	}
	if !s.retain() {
		s.writing.Store(false)
		return
	}
	go e.flush(s)
}

// flush packs queued frames into the pooled write buffer and writes until
// the queue is empty. Clearing the guard re-checks the queue under writeMu
// so a frame queued meanwhile is never stranded.
func (e *Engine) flush(s *Session) {
	defer s.release()
	for {
		s.writeMu.Lock()
		for s.writeBuf.Free() > 0 {
			if s.head == nil {
				if s.outq.Length() == 0 {
					break
				}
				s.head = s.outq.Remove().([]byte)
			}
			n, _ := s.writeBuf.Append(s.head)
			s.head = s.head[n:]
			if len(s.head) == 0 {
				s.head = nil
			}
		}
		if s.writeBuf.Len() == 0 {
			s.writing.Store(false)
			closing := s.Status() == api.StatusClosing
			s.writeMu.Unlock()
			if closing {
				s.finalize()
			}
			return
		}
		s.writeMu.Unlock()

		n, err := s.conn.Write(s.writeBuf.Readable())
		if n > 0 {
			s.writeBuf.Consume(n)
			e.chain.AfterWrite(s, n)
		}
		if err != nil {
			s.writing.Store(false)
			e.outputFailure(s, api.NewError(api.ErrCodeOutputFailure, "write failed").Wrap(err))
			return
		}
		s.writeBuf.Compact()
	}
}

// outputFailure reports err once and closes s.
func (e *Engine) outputFailure(s *Session, err error) {
	if s.Status() == api.StatusClosed {
		return
	}
	e.log.Debug().Uint32("session", s.id).Err(err).Msg("output failure")
	e.chain.OnEvent(s, api.EventOutputException, err)
	s.finalize()
}
