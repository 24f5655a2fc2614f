// File: pool/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer is a checked-out page region with read/write cursors.

package pool

import (
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
)

// Buffer is a handle to a region lent by a PagePool.
//
// Cursor methods are not safe for concurrent use; the owning session
// serializes access. Release is safe to call from any goroutine and only the
// first call returns the region. After Release the handle is inert: Cap, Len
// and both views report empty, Advance/Consume do nothing and Append fails
// with api.ErrBufferReleased.
type Buffer struct {
	pool *PagePool
	page int
	off  int
	size int
	data []byte
	r, w int

	released atomic.Bool
}

// Cap returns the region size.
func (b *Buffer) Cap() int {
	if b.released.Load() {
		return 0
	}
	return b.size
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	if b.released.Load() {
		return 0
	}
	return b.w - b.r
}

// Free returns the number of bytes that can still be written.
func (b *Buffer) Free() int {
	if b.released.Load() {
		return 0
	}
	return b.size - b.w
}

// Readable returns the unread bytes [read cursor, write cursor).
func (b *Buffer) Readable() []byte {
	if b.released.Load() {
		return nil
	}
	return b.data[b.r:b.w]
}

// Writable returns the unwritten tail [write cursor, cap).
func (b *Buffer) Writable() []byte {
	if b.released.Load() {
		return nil
	}
	return b.data[b.w:]
}

// Advance moves the write cursor after n bytes were written into Writable.
func (b *Buffer) Advance(n int) {
	if b.released.Load() {
		return
	}
	if n < 0 || b.w+n > b.size {
		panic("pool: advance beyond buffer capacity")
	}
	b.w += n
}

// Consume moves the read cursor over n bytes.
func (b *Buffer) Consume(n int) {
	if b.released.Load() {
		return
	}
	if n < 0 || b.r+n > b.w {
		panic("pool: consume beyond written data")
	}
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
}

// Append copies as much of p as fits and returns the number of bytes taken.
func (b *Buffer) Append(p []byte) (int, error) {
	if b.released.Load() {
		return 0, api.ErrBufferReleased
	}
	n := copy(b.data[b.w:], p)
	b.w += n
	return n, nil
}

// Compact moves unread bytes to the start of the region.
func (b *Buffer) Compact() {
	if b.released.Load() || b.r == 0 {
		return
	}
	n := copy(b.data, b.data[b.r:b.w])
	b.r, b.w = 0, n
}

// Reset discards all content.
func (b *Buffer) Reset() {
	b.r, b.w = 0, 0
}

// Released reports whether the handle was returned to its pool.
func (b *Buffer) Released() bool {
	return b.released.Load()
}

// Release returns the region to its page. Only the first call has effect.
func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.data = nil
	b.r, b.w = 0, 0
	b.pool.put(b)
}
