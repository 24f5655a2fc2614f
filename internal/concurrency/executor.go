// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor runs tasks on a fixed set of worker goroutines. Tasks go to a
// shared lock-free ring and spill into an unbounded overflow queue when the
// ring is full, so Submit never drops work.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/affinity"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	ring *LockFreeQueue[TaskFunc]

	overMu   sync.Mutex
	overflow *queue.Queue

	gate    sync.RWMutex // Submit holds R; Close holds W while flipping closed
	closed  bool
	closeCh chan struct{}
	wake    chan struct{}
	wg      sync.WaitGroup
	workers int
	cpus    []int // pin targets; empty leaves workers unpinned

	log zerolog.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// Option tunes an Executor before its workers start.
type Option func(*Executor)

// WithAffinity locks worker i to its OS thread and pins it to
// cpus[i%len(cpus)]. A failed pin is logged and the worker runs unpinned.
func WithAffinity(cpus []int) Option {
	return func(e *Executor) { e.cpus = append([]int(nil), cpus...) }
}

// NewExecutor starts numWorkers workers; numWorkers <= 0 means runtime.NumCPU().
func NewExecutor(numWorkers, ringSize int, log zerolog.Logger, opts ...Option) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if ringSize <= 0 {
		ringSize = 1024
	}
	e := &Executor{
		ring:     NewLockFreeQueue[TaskFunc](ringSize),
		overflow: queue.New(),
		closeCh:  make(chan struct{}),
		wake:     make(chan struct{}, numWorkers),
		workers:  numWorkers,
		log:      log.With().Str("component", "executor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues task. It fails only after Close.
func (e *Executor) Submit(task TaskFunc) error {
	e.gate.RLock()
	defer e.gate.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}
	e.submitted.Add(1)
	if !e.ring.Enqueue(task) {
		e.overMu.Lock()
		e.overflow.Add(task)
		e.overMu.Unlock()
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int { return e.workers }

// Close rejects new tasks, lets workers finish everything already queued and
// waits for them to exit. Calling Close from a task deadlocks.
func (e *Executor) Close() {
	e.gate.Lock()
	if e.closed {
		e.gate.Unlock()
		return
	}
	e.closed = true
	e.gate.Unlock()
	close(e.closeCh)
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	submitted, completed := e.submitted.Load(), e.completed.Load()
	return map[string]int64{
		"total_tasks":     submitted,
		"completed_tasks": completed,
		"pending_tasks":   submitted - completed,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.workers),
	}
}

func (e *Executor) next() (TaskFunc, bool) {
	if task, ok := e.ring.Dequeue(); ok {
		return task, true
	}
	e.overMu.Lock()
	defer e.overMu.Unlock()
	if e.overflow.Length() == 0 {
		return nil, false
	}
	return e.overflow.Remove().(TaskFunc), true
}

func (e *Executor) run(id int) {
	defer e.wg.Done()
	if len(e.cpus) > 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		cpu := e.cpus[id%len(e.cpus)]
		if err := affinity.Pin(cpu); err != nil {
			e.log.Warn().Err(err).Int("worker", id).Int("cpu", cpu).Msg("worker not pinned")
		}
	}
	for {
		if task, ok := e.next(); ok {
			e.execute(id, task)
			continue
		}
		select {
		case <-e.wake:
		case <-e.closeCh:
			for task, ok := e.next(); ok; task, ok = e.next() {
				e.execute(id, task)
			}
			return
		}
	}
}

func (e *Executor) execute(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
		e.completed.Add(1)
	}()
	task()
}
