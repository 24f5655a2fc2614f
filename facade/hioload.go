// File: facade/hioload.go
// Unified facade layer for hioload-aio.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines Runtime, the explicit context that owns every component
// of a running engine: logger, page pool, filter chain, executor, session
// store, codec and engine. New builds them in dependency order and Shutdown
// tears them down in reverse. Listen and Dial turn TCP connections into
// sessions backed by pooled read and write buffers.

package facade

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/affinity"
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/control"
	"github.com/momentics/hioload-aio/filter"
	"github.com/momentics/hioload-aio/internal/concurrency"
	"github.com/momentics/hioload-aio/internal/engine"
	"github.com/momentics/hioload-aio/internal/session"
	"github.com/momentics/hioload-aio/pool"
	"github.com/momentics/hioload-aio/protocol"
	"github.com/momentics/hioload-aio/transport"
)

// ErrClosed is returned by Listen and Dial after Shutdown.
var ErrClosed = errors.New("runtime closed")

const (
	sessionShards = 64
	executorRing  = 4096
)

// Runtime aggregates the components of one engine instance.
// It implements api.GracefulShutdown.
type Runtime struct {
	cfg    control.Config
	log    zerolog.Logger
	pool   *pool.PagePool
	chain  *filter.Chain
	exec   *concurrency.Executor
	store  *session.Store
	proto  api.Protocol
	engine *engine.Engine
	debug  *control.DebugProbes
	topts  transport.Options

	mu        sync.Mutex
	closed    bool
	listeners []net.Listener
	accepting sync.WaitGroup
}

var _ api.GracefulShutdown = (*Runtime)(nil)

// New validates cfg and builds a Runtime that hands decoded frames to proc.
// Filters run in the order given.
func New(cfg control.Config, proc api.MessageProcessor, filters ...api.Filter) (*Runtime, error) {
	if proc == nil {
		return nil, fmt.Errorf("facade: processor is required: %w", api.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg:   cfg,
		log:   control.NewLogger(cfg.Log, nil),
		store: session.NewStore(sessionShards),
		debug: control.NewDebugProbes(),
		topts: transport.Options{
			NoDelay:   cfg.Transport.NoDelay,
			ReuseAddr: cfg.Transport.ReuseAddr,
			KeepAlive: cfg.Transport.KeepAlive.Duration,
		},
	}

	proto, err := protocol.Lookup(cfg.Transport.Protocol, cfg.Session.MaxContentLength)
	if err != nil {
		return nil, err
	}
	r.proto = proto

	r.pool, err = pool.New(pool.Options{
		PageSize:       cfg.Pool.PageSize,
		PageCount:      cfg.Pool.PageCount,
		SharedPageSize: cfg.Pool.SharedPageSize,
		SweepInterval:  cfg.Pool.SweepInterval.Duration,
		Logger:         r.log,
	})
	if err != nil {
		return nil, fmt.Errorf("facade: buffer pool: %w", err)
	}

	r.chain = filter.NewChain(r.log, filters...)
	var execOpts []concurrency.Option
	if cfg.Engine.PinWorkers {
		if cpus, err := affinity.Allowed(); err != nil {
			r.log.Warn().Err(err).Msg("worker pinning disabled")
		} else {
			execOpts = append(execOpts, concurrency.WithAffinity(cpus))
		}
	}
	r.exec = concurrency.NewExecutor(cfg.Engine.Workers, executorRing, r.log, execOpts...)
	r.engine, err = engine.New(engine.Options{
		Protocol:           proto,
		Processor:          proc,
		Filters:            r.chain,
		Executor:           r.exec,
		Store:              r.store,
		Logger:             r.log,
		ReadPermits:        cfg.Engine.ReadPermits,
		WriteQueueCapacity: cfg.Session.WriteQueueCapacity,
		WatcherTimeout:     cfg.Engine.WatcherTimeout.Duration,
		DrainBatch:         cfg.Engine.DrainBatch,
	})
	if err != nil {
		r.exec.Close()
		r.pool.Disable()
		return nil, err
	}

	r.debug.RegisterProbe("pool", func() any { return r.pool.Stats() })
	r.debug.RegisterProbe("engine", func() any { return r.engine.Stats() })
	r.debug.RegisterProbe("executor", func() any { return r.exec.Stats() })
	r.debug.RegisterProbe("sessions", func() any { return r.store.Len() })

	r.log.Info().
		Str("protocol", proto.Name()).
		Int("read_permits", cfg.Engine.ReadPermits).
		Int("workers", cfg.Engine.Workers).
		Msg("runtime started")
	return r, nil
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() zerolog.Logger { return r.log }

// Protocol returns the codec every session uses.
func (r *Runtime) Protocol() api.Protocol { return r.proto }

// Debug exposes the runtime probes.
func (r *Runtime) Debug() api.Debug { return r.debug }

// Stats returns engine counters.
func (r *Runtime) Stats() engine.Stats { return r.engine.Stats() }

// Session returns a live session by id.
func (r *Runtime) Session(id uint32) (api.Session, bool) {
	return r.store.Get(id)
}

// SessionCount returns the number of live sessions.
func (r *Runtime) SessionCount() int { return r.store.Len() }

// Listen binds addr and accepts connections in the background until
// Shutdown. The returned address is the bound one.
func (r *Runtime) Listen(ctx context.Context, addr string) (net.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	ln, err := transport.Listen(ctx, "tcp", addr, r.topts)
	if err != nil {
		return nil, err
	}
	r.listeners = append(r.listeners, ln)
	r.accepting.Add(1)
	go r.acceptLoop(ln)
	r.log.Info().Stringer("addr", ln.Addr()).Msg("listening")
	return ln.Addr(), nil
}

func (r *Runtime) acceptLoop(ln net.Listener) {
	defer r.accepting.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			r.log.Error().Err(err).Stringer("addr", ln.Addr()).Msg("accept failed")
			return
		}
		if !r.chain.ShouldAccept(conn) {
			r.log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("connection refused by filter")
			_ = conn.Close()
			continue
		}
		if _, err := r.attach(conn); err != nil {
			r.log.Warn().Err(err).Stringer("remote", conn.RemoteAddr()).Msg("session not registered")
		}
	}
}

// Dial connects to addr and returns the resulting session.
func (r *Runtime) Dial(ctx context.Context, addr string) (api.Session, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	conn, err := transport.Dial(ctx, "tcp", addr, r.topts)
	if err != nil {
		return nil, err
	}
	s, err := r.attach(conn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// attach allocates session buffers and registers conn. conn is closed and
// the buffers returned on failure.
func (r *Runtime) attach(conn net.Conn) (*engine.Session, error) {
	readBuf, err := r.pool.Allocate(r.cfg.Session.ReadBufferSize)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("facade: read buffer: %w", err)
	}
	writeBuf, err := r.pool.Allocate(r.cfg.Session.WriteBufferSize)
	if err != nil {
		readBuf.Release()
		_ = conn.Close()
		return nil, fmt.Errorf("facade: write buffer: %w", err)
	}
	s, err := r.engine.Register(conn, readBuf, writeBuf)
	if err != nil {
		readBuf.Release()
		writeBuf.Release()
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Shutdown stops accepting, closes every session gracefully and waits for
// them until ctx is done, then stops the engine, the executor and the pool.
// Sessions still open when ctx expires are closed without flushing.
// Shutdown must not be called from a MessageProcessor, a filter hook or an
// executor task: it waits for the goroutines those run on and deadlocks.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	listeners := r.listeners
	r.listeners = nil
	r.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	r.accepting.Wait()

	sessions := r.store.Snapshot()
	for _, s := range sessions {
		_ = s.Close(true)
	}
	var err error
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			break
		}
	}
	if err != nil {
		r.log.Warn().Err(err).Int("sessions", r.store.Len()).Msg("graceful close interrupted")
	}

	r.engine.Stop()
	r.exec.Close()
	r.pool.Disable()
	r.log.Info().Msg("runtime stopped")
	return err
}
