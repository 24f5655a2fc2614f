// File: internal/engine/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/session"
	"github.com/momentics/hioload-aio/pool"
)

// Session is the engine's api.Session.
//
// refs counts the lifecycle hold plus every in-flight read or write. The
// pooled buffers go back to the pool when it drops to zero, so a close never
// pulls memory from under a running pipeline.
type Session struct {
	id     uint32
	eng    *Engine
	conn   net.Conn
	local  net.Addr
	remote net.Addr
	attrs  *session.Attrs

	status    atomic.Int32
	refs      atomic.Int32
	done      chan struct{}
	closeOnce sync.Once

	// read side: touched only by the holder of the in-flight read
	armed   chan struct{}
	readBuf *pool.Buffer
	big     []byte // assembles a frame larger than readBuf
	pending int    // bytes of the last completed read not yet processed
	readErr error  // error that came with pending; ends the read side

	// write side
	writeMu  sync.Mutex
	outq     *queue.Queue // encoded frames, []byte
	writing  atomic.Bool
	writeBuf *pool.Buffer
	head     []byte // unsent tail of the frame being packed; writer-owned
}

var _ api.Session = (*Session)(nil)

func newSession(e *Engine, id uint32, conn net.Conn, readBuf, writeBuf *pool.Buffer) *Session {
	s := &Session{
		id:       id,
		eng:      e,
		conn:     conn,
		local:    conn.LocalAddr(),
		remote:   conn.RemoteAddr(),
		attrs:    session.NewAttrs(),
		done:     make(chan struct{}),
		armed:    make(chan struct{}, 1),
		readBuf:  readBuf,
		outq:     queue.New(),
		writeBuf: writeBuf,
	}
	s.status.Store(int32(api.StatusEnabled))
	s.refs.Store(1)
	return s
}

func (s *Session) ID() uint32                { return s.id }
func (s *Session) LocalAddr() net.Addr       { return s.local }
func (s *Session) RemoteAddr() net.Addr      { return s.remote }
func (s *Session) Done() <-chan struct{}     { return s.done }
func (s *Session) Status() api.Status        { return api.Status(s.status.Load()) }
func (s *Session) Attr(k string) (any, bool) { return s.attrs.Get(k) }
func (s *Session) SetAttr(k string, v any)   { s.attrs.Set(k, v) }

// advance moves status forward to next. Status never moves backwards.
func (s *Session) advance(next api.Status) bool {
	for {
		cur := s.status.Load()
		if cur >= int32(next) {
			return false
		}
		if s.status.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}

func (s *Session) retain() bool {
	for {
		r := s.refs.Load()
		if r <= 0 || s.Status() == api.StatusClosed {
			return false
		}
		if s.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

func (s *Session) release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	s.readBuf.Release()
	s.writeBuf.Release()
	s.big = nil
	s.head = nil
}

// arm lets the reader goroutine issue the next read.
func (s *Session) arm() {
	select {
	case s.armed <- struct{}{}:
	default:
	}
}

// Close tears the session down. A graceful close stops reading, moves to
// Closing and lets the writer drain the outbound queue before the socket is
// closed. Close is idempotent and never blocks on I/O.
func (s *Session) Close(graceful bool) error {
	if !graceful {
		s.finalize()
		return nil
	}
	if !s.advance(api.StatusClosing) {
		return nil
	}
	s.eng.chain.OnEvent(s, api.EventSessionClosing, nil)

	s.writeMu.Lock()
	idle := !s.writing.Load() && s.outq.Length() == 0
	s.writeMu.Unlock()
	if idle {
		s.finalize()
	}
	return nil
}

// finalize runs the Closed transition exactly once. Done is closed after
// SESSION_CLOSED has reached every filter.
func (s *Session) finalize() {
	s.closeOnce.Do(func() {
		s.advance(api.StatusClosed)
		_ = s.conn.Close()

		s.writeMu.Lock()
		dropped := s.outq.Length()
		for s.outq.Length() > 0 {
			s.outq.Remove()
		}
		s.writeMu.Unlock()

		s.eng.store.Delete(s.id)
		s.eng.log.Debug().Uint32("session", s.id).Int("dropped_writes", dropped).Msg("session closed")
		s.eng.chain.OnEvent(s, api.EventSessionClosed, nil)
		s.attrs.Clear()
		close(s.done)
		s.release()
	})
}
