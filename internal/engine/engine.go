// File: internal/engine/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/filter"
	"github.com/momentics/hioload-aio/internal/concurrency"
	"github.com/momentics/hioload-aio/internal/session"
	"github.com/momentics/hioload-aio/pool"
)

// ErrStopped is returned by Register after Stop.
var ErrStopped = errors.New("engine stopped")

const (
	defaultWatcherTimeout = 100 * time.Millisecond
	defaultDrainBatch     = 16
)

// Options wires an Engine. Protocol, Processor, Executor and Store are required.
type Options struct {
	Protocol  api.Protocol
	Processor api.MessageProcessor
	Filters   api.Filter // nil means no filters
	Executor  *concurrency.Executor
	Store     *session.Store
	Logger    zerolog.Logger

	ReadPermits        int           // concurrent read pipelines
	WriteQueueCapacity int           // queued frames per session
	WatcherTimeout     time.Duration // upper bound on a watcher wait
	DrainBatch         int           // backlog entries a permit holder serves per pass
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Permits      int   // free read permits
	Backlog      int   // sessions waiting for a permit
	Sessions     int   // registered sessions
	Inline       int64 // reads that got a permit on completion
	Deferred     int64 // backlog entries handed to the executor
	PeakInFlight int64 // highest number of concurrent pipelines seen
}

// Engine runs the read and write paths of every registered session.
type Engine struct {
	proto      api.Protocol
	proc       api.MessageProcessor
	chain      api.Filter
	exec       *concurrency.Executor
	store      *session.Store
	log        zerolog.Logger
	gate       *gate
	queueCap   int
	drainBatch int
	serial     atomix.Uint32

	mu          sync.Mutex
	stopped     bool
	readers     sync.WaitGroup
	watcherDone chan struct{}

	inline   atomic.Int64
	deferred atomic.Int64
	inflight atomic.Int64
	peak     atomic.Int64
}

// New validates opts and starts the backlog watcher.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Protocol == nil, opts.Processor == nil, opts.Executor == nil, opts.Store == nil:
		return nil, fmt.Errorf("engine: protocol, processor, executor and store are required: %w", api.ErrInvalidArgument)
	case opts.ReadPermits <= 0:
		return nil, fmt.Errorf("engine: read permits %d: %w", opts.ReadPermits, api.ErrInvalidArgument)
	case opts.WriteQueueCapacity <= 0:
		return nil, fmt.Errorf("engine: write queue capacity %d: %w", opts.WriteQueueCapacity, api.ErrInvalidArgument)
	}
	if opts.Filters == nil {
		opts.Filters = filter.Base{}
	}
	if opts.WatcherTimeout <= 0 {
		opts.WatcherTimeout = defaultWatcherTimeout
	}
	if opts.DrainBatch <= 0 {
		opts.DrainBatch = defaultDrainBatch
	}
	e := &Engine{
		proto:       opts.Protocol,
		proc:        opts.Processor,
		chain:       opts.Filters,
		exec:        opts.Executor,
		store:       opts.Store,
		log:         opts.Logger.With().Str("component", "engine").Logger(),
		gate:        newGate(opts.ReadPermits, opts.WatcherTimeout),
		queueCap:    opts.WriteQueueCapacity,
		drainBatch:  opts.DrainBatch,
		watcherDone: make(chan struct{}),
	}
	go e.watch()
	return e, nil
}

// Register turns conn into a session that owns readBuf and writeBuf, fires
// NEW_SESSION and starts reading. On error the caller keeps the buffers.
func (e *Engine) Register(conn net.Conn, readBuf, writeBuf *pool.Buffer) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, ErrStopped
	}
	s := newSession(e, e.serial.Add(1), conn, readBuf, writeBuf)
	if !e.store.Add(s) {
		return nil, fmt.Errorf("engine: session id %d in use: %w", s.id, api.ErrInvalidArgument)
	}
	e.log.Debug().Uint32("session", s.id).Stringer("remote", s.remote).Msg("session registered")
	e.chain.OnEvent(s, api.EventNewSession, nil)
	e.readers.Add(1)
	go e.readLoop(s)
	s.arm()
	return s, nil
}

// Lookup returns a live session by id.
func (e *Engine) Lookup(id uint32) (*Session, bool) {
	s, ok := e.store.Get(id)
	if !ok {
		return nil, false
	}
	es, ok := s.(*Session)
	return es, ok
}

// Stop closes every session without flushing, stops the watcher and waits
// for reader goroutines. Reads still queued are discarded. Stop does not
// close the executor. Pipelines may run on reader goroutines, so calling
// Stop from a MessageProcessor or a filter hook deadlocks.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	for _, s := range e.store.Snapshot() {
		_ = s.Close(false)
	}
	for _, s := range e.gate.stop() {
		e.pipeline(s)
	}
	<-e.watcherDone
	e.readers.Wait()
	e.log.Debug().Msg("engine stopped")
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	permits, backlog := e.gate.stats()
	return Stats{
		Permits:      permits,
		Backlog:      backlog,
		Sessions:     e.store.Len(),
		Inline:       e.inline.Load(),
		Deferred:     e.deferred.Load(),
		PeakInFlight: e.peak.Load(),
	}
}
