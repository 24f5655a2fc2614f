// File: pool/bufferpool.go
// Package pool implements page-backed buffer pooling with idle reclaim.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/api"
)

const defaultSweepInterval = time.Second

// Options configures a PagePool.
type Options struct {
	PageSize  int // bytes per page
	PageCount int // number of round-robin pages
	// SharedPageSize sizes an overflow page used only when every regular
	// page is full. Zero disables it.
	SharedPageSize int
	// SweepInterval is the idle-reclaim period. Defaults to one second.
	SweepInterval time.Duration
	Logger        zerolog.Logger
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	Pages    int   // regular pages plus the shared page, if any
	Capacity int   // total bytes across all pages
	InUse    int   // bytes currently checked out
	Live     int   // regions currently checked out
	Allocs   int64 // successful Allocate calls
	Releases int64 // Buffer.Release calls that returned a region
	Failures int64 // Allocate calls that found no room
}

// PagePool lends regions of a fixed page set.
type PagePool struct {
	pages    []*page
	shared   *page // nil when SharedPageSize == 0
	cursor   atomix.Uint32
	disabled atomic.Bool

	allocs   atomic.Int64
	releases atomic.Int64
	failures atomic.Int64

	log      zerolog.Logger
	interval time.Duration
	kick     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New allocates every page up front and starts the sweeper.
func New(opts Options) (*PagePool, error) {
	if opts.PageSize <= 0 || opts.PageCount <= 0 {
		return nil, fmt.Errorf("pool: page size %d and count %d must be positive: %w",
			opts.PageSize, opts.PageCount, api.ErrInvalidArgument)
	}
	if opts.SharedPageSize < 0 {
		return nil, fmt.Errorf("pool: negative shared page size: %w", api.ErrInvalidArgument)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	p := &PagePool{
		pages:    make([]*page, opts.PageCount),
		log:      opts.Logger.With().Str("component", "pool").Logger(),
		interval: opts.SweepInterval,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for i := range p.pages {
		p.pages[i] = newPage(i, opts.PageSize)
	}
	if opts.SharedPageSize > 0 {
		p.shared = newPage(opts.PageCount, opts.SharedPageSize)
	}
	go p.sweep()
	return p, nil
}

// Allocate checks out size bytes. The page is picked round-robin; when it
// has no contiguous room the remaining pages and then the shared page are
// tried in order. Allocate never blocks.
func (p *PagePool) Allocate(size int) (*Buffer, error) {
	if p.disabled.Load() {
		return nil, api.ErrPoolDisabled
	}
	if size <= 0 {
		return nil, fmt.Errorf("pool: allocate %d bytes: %w", size, api.ErrInvalidArgument)
	}
	n := len(p.pages)
	start := int((p.cursor.Add(1) - 1) % uint32(n))
	for i := 0; i < n; i++ {
		pg := p.pages[(start+i)%n]
		if size > pg.capacity() {
			break
		}
		if off, mem, ok := pg.allocate(size); ok {
			return p.lend(pg, off, size, mem), nil
		}
	}
	if p.shared != nil && size <= p.shared.capacity() {
		if off, mem, ok := p.shared.allocate(size); ok {
			return p.lend(p.shared, off, size, mem), nil
		}
	}
	p.failures.Add(1)
	return nil, fmt.Errorf("pool: no page can fit %d bytes: %w", size, api.ErrPoolExhausted)
}

func (p *PagePool) lend(pg *page, off, size int, mem []byte) *Buffer {
	p.allocs.Add(1)
	return &Buffer{pool: p, page: pg.idx, off: off, size: size, data: mem}
}

func (p *PagePool) put(b *Buffer) {
	p.releases.Add(1)
	p.pageAt(b.page).put(b.off, b.size)
}

func (p *PagePool) pageAt(idx int) *page {
	if idx == len(p.pages) {
		return p.shared
	}
	return p.pages[idx]
}

// Disable permanently stops allocation. The sweeper frees every page once
// its regions are returned, then exits and closes Done.
func (p *PagePool) Disable() {
	if !p.disabled.CompareAndSwap(false, true) {
		return
	}
	p.log.Debug().Msg("pool disabled")
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Disabled reports whether Disable was called.
func (p *PagePool) Disabled() bool {
	return p.disabled.Load()
}

// Done is closed after a disabled pool released all of its pages.
func (p *PagePool) Done() <-chan struct{} {
	return p.done
}

// Stats aggregates page usage.
func (p *PagePool) Stats() Stats {
	st := Stats{
		Allocs:   p.allocs.Load(),
		Releases: p.releases.Load(),
		Failures: p.failures.Load(),
	}
	p.eachPage(func(pg *page) {
		used, live := pg.snapshot()
		st.Pages++
		st.Capacity += pg.capacity()
		st.InUse += used
		st.Live += live
	})
	return st
}

func (p *PagePool) eachPage(fn func(*page)) {
	for _, pg := range p.pages {
		fn(pg)
	}
	if p.shared != nil {
		fn(p.shared)
	}
}

// sweep runs the idle-reclaim loop until the disabled pool is torn down.
func (p *PagePool) sweep() {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
		case <-p.kick:
		}
		if p.sweepOnce() {
			p.stopOnce.Do(func() { close(p.done) })
			p.log.Debug().Msg("pool pages released")
			return
		}
	}
}

// sweepOnce performs one sweeper pass and reports whether every page is gone.
func (p *PagePool) sweepOnce() bool {
	if !p.disabled.Load() {
		p.eachPage(func(pg *page) { pg.tryClean() })
		return false
	}
	gone := true
	p.eachPage(func(pg *page) {
		if !pg.release() {
			gone = false
		}
	})
	return gone
}
