// File: transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Options are the socket settings applied to listeners and connections.
type Options struct {
	NoDelay   bool          // TCP_NODELAY on every connection
	ReuseAddr bool          // SO_REUSEADDR (and SO_REUSEPORT where available) on listeners
	KeepAlive time.Duration // TCP keep-alive period; zero keeps the Go default, negative disables
}

// Listen opens a listener whose accepted connections are tuned with opts.
func Listen(ctx context.Context, network, addr string, opts Options) (net.Listener, error) {
	lc := net.ListenConfig{KeepAlive: opts.KeepAlive}
	if opts.ReuseAddr {
		lc.Control = reuseControl
	}
	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s %s: %w", network, addr, err)
	}
	return &listener{Listener: ln, opts: opts}, nil
}

// Dial connects to addr and tunes the connection with opts.
func Dial(ctx context.Context, network, addr string, opts Options) (net.Conn, error) {
	d := net.Dialer{KeepAlive: opts.KeepAlive}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s %s: %w", network, addr, err)
	}
	if err := Tune(conn, opts); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Tune applies per-connection options. Non-TCP connections are left alone.
func Tune(conn net.Conn, opts Options) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := setNoDelay(tc, opts.NoDelay); err != nil {
		return fmt.Errorf("transport: TCP_NODELAY: %w", err)
	}
	return nil
}

type listener struct {
	net.Listener
	opts Options
}

// Accept tunes each connection; a failed tune leaves the Go defaults.
func (l *listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	_ = Tune(conn, l.opts)
	return conn, nil
}
