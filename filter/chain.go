// File: filter/chain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"net"

	"github.com/momentics/hioload-aio/api"
	"github.com/rs/zerolog"
)

// Chain invokes its filters in registration order. Veto hooks are seen by
// every filter; the result is the AND of all answers. A panicking filter is
// logged and counts as a veto, it never stops the remaining filters.
type Chain struct {
	filters []api.Filter
	log     zerolog.Logger
}

var _ api.Filter = (*Chain)(nil)

// NewChain builds a chain. The filter list is fixed after construction.
func NewChain(log zerolog.Logger, filters ...api.Filter) *Chain {
	fs := make([]api.Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			fs = append(fs, f)
		}
	}
	return &Chain{filters: fs, log: log.With().Str("component", "filter").Logger()}
}

// Len returns the number of filters.
func (c *Chain) Len() int { return len(c.filters) }

func (c *Chain) ShouldAccept(conn net.Conn) bool {
	ok := true
	for i, f := range c.filters {
		if !c.guardBool(i, "ShouldAccept", func() bool { return f.ShouldAccept(conn) }) {
			ok = false
		}
	}
	return ok
}

func (c *Chain) BeforeRead(s api.Session, n int) bool {
	ok := true
	for i, f := range c.filters {
		if !c.guardBool(i, "BeforeRead", func() bool { return f.BeforeRead(s, n) }) {
			ok = false
		}
	}
	return ok
}

func (c *Chain) AfterRead(s api.Session, fr api.Frame) {
	for i, f := range c.filters {
		c.guard(i, "AfterRead", func() { f.AfterRead(s, fr) })
	}
}

func (c *Chain) BeforeWrite(s api.Session, fr api.Frame) bool {
	ok := true
	for i, f := range c.filters {
		if !c.guardBool(i, "BeforeWrite", func() bool { return f.BeforeWrite(s, fr) }) {
			ok = false
		}
	}
	return ok
}

func (c *Chain) AfterWrite(s api.Session, n int) {
	for i, f := range c.filters {
		c.guard(i, "AfterWrite", func() { f.AfterWrite(s, n) })
	}
}

func (c *Chain) OnEvent(s api.Session, ev api.Event, err error) {
	for i, f := range c.filters {
		c.guard(i, "OnEvent", func() { f.OnEvent(s, ev, err) })
	}
}

func (c *Chain) guard(idx int, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Int("filter", idx).Str("hook", hook).Interface("panic", r).Msg("filter panicked")
		}
	}()
	fn()
}

func (c *Chain) guardBool(idx int, hook string, fn func() bool) (ok bool) {
	c.guard(idx, hook, func() { ok = fn() })
	return ok
}
