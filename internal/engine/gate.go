// File: internal/engine/gate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

type admission int

const (
	admitRun admission = iota
	admitQueued
	admitRejected
)

// gate owns the read permits and the backlog of sessions whose completed
// read is waiting for one. Both live under one mutex so a permit is never
// returned while a session sits queued unseen.
type gate struct {
	mu         sync.Mutex
	cond       *sync.Cond
	permits    int
	backlog    *queue.Queue // *Session
	needNotify bool
	stopped    bool
	timeout    time.Duration
}

func newGate(permits int, timeout time.Duration) *gate {
	g := &gate{permits: permits, backlog: queue.New(), timeout: timeout}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// admit takes a permit for s or appends s to the backlog.
func (g *gate) admit(s *Session) admission {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.stopped:
		return admitRejected
	case g.permits > 0:
		g.permits--
		return admitRun
	}
	g.backlog.Add(s)
	g.notifyLocked()
	return admitQueued
}

// handoff is called by a permit holder that finished a pipeline. With more
// set it passes the permit to the backlog head and returns that session;
// otherwise, or when the backlog is empty, the permit goes back to the pool.
func (g *gate) handoff(more bool) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if more && g.backlog.Length() > 0 {
		return g.backlog.Remove().(*Session)
	}
	g.permits++
	if g.backlog.Length() > 0 {
		g.notifyLocked()
	}
	return nil
}

// take blocks until a permit and a queued session are both available and
// claims them. ok is false once the gate is stopped.
func (g *gate) take() (s *Session, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if g.stopped {
			return nil, false
		}
		if g.permits > 0 && g.backlog.Length() > 0 {
			g.permits--
			return g.backlog.Remove().(*Session), true
		}
		g.needNotify = true
		g.waitLocked()
	}
}

func (g *gate) notifyLocked() {
	if g.needNotify {
		g.needNotify = false
		g.cond.Signal()
	}
}

// waitLocked waits for a signal or the watcher timeout, whichever is first.
func (g *gate) waitLocked() {
	t := time.AfterFunc(g.timeout, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	g.cond.Wait()
	t.Stop()
}

// stop wakes the watcher and returns whatever is still queued.
func (g *gate) stop() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	g.cond.Broadcast()
	left := make([]*Session, 0, g.backlog.Length())
	for g.backlog.Length() > 0 {
		left = append(left, g.backlog.Remove().(*Session))
	}
	return left
}

func (g *gate) stats() (permits, backlog int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.permits, g.backlog.Length()
}
