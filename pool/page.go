// File: pool/page.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity memory page with a first-fit free list.

package pool

import (
	"sort"
	"sync"
)

// region is a contiguous [off, off+size) span inside a page.
type region struct {
	off  int
	size int
}

// page is a fixed block of memory partitioned into free and used spans.
// All mutation happens under mu; pages never share state.
type page struct {
	idx  int
	size int
	mem  []byte

	mu    sync.Mutex
	free  []region // sorted by off, coalesced
	idle  []region // released, not yet merged into free
	used  int
	live  int
	freed bool

	unmap func([]byte)
}

func newPage(idx, size int) *page {
	mem, unmap := allocPage(size)
	return &page{
		idx:   idx,
		size:  size,
		mem:   mem,
		free:  []region{{off: 0, size: size}},
		unmap: unmap,
	}
}

// capacity returns the page size in bytes.
func (pg *page) capacity() int {
	return pg.size
}

// allocate reserves size contiguous bytes and returns their offset and a
// capacity-clamped view. Idle regions are merged on demand when the free
// list alone cannot satisfy the request.
func (pg *page) allocate(size int) (int, []byte, bool) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.freed {
		return 0, nil, false
	}
	off, ok := pg.take(size)
	if !ok && len(pg.idle) > 0 {
		pg.merge()
		off, ok = pg.take(size)
	}
	if !ok {
		return 0, nil, false
	}
	pg.used += size
	pg.live++
	return off, pg.mem[off : off+size : off+size], true
}

func (pg *page) take(size int) (int, bool) {
	for i, r := range pg.free {
		if r.size < size {
			continue
		}
		off := r.off
		if r.size == size {
			pg.free = append(pg.free[:i], pg.free[i+1:]...)
		} else {
			pg.free[i] = region{off: r.off + size, size: r.size - size}
		}
		return off, true
	}
	return 0, false
}

// put parks a released region until the next merge.
func (pg *page) put(off, size int) {
	pg.mu.Lock()
	pg.idle = append(pg.idle, region{off: off, size: size})
	pg.used -= size
	pg.live--
	pg.mu.Unlock()
}

// tryClean folds idle regions back into contiguous free space.
func (pg *page) tryClean() {
	pg.mu.Lock()
	if len(pg.idle) > 0 {
		pg.merge()
	}
	pg.mu.Unlock()
}

// merge must be called with mu held.
func (pg *page) merge() {
	all := append(pg.free, pg.idle...)
	pg.idle = pg.idle[:0]
	sort.Slice(all, func(i, j int) bool { return all[i].off < all[j].off })
	out := all[:0]
	for _, r := range all {
		if n := len(out); n > 0 && out[n-1].off+out[n-1].size == r.off {
			out[n-1].size += r.size
			continue
		}
		out = append(out, r)
	}
	pg.free = out
}

// release returns the page memory to the OS once no region is checked out.
// It reports whether the page is gone.
func (pg *page) release() bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.freed {
		return true
	}
	if pg.live > 0 {
		return false
	}
	if pg.unmap != nil {
		pg.unmap(pg.mem)
	}
	pg.mem = nil
	pg.free = nil
	pg.idle = nil
	pg.freed = true
	return true
}

func (pg *page) snapshot() (used, live int) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.used, pg.live
}
