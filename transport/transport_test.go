package transport

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestListenDialRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := Options{NoDelay: true, ReuseAddr: true, KeepAlive: time.Second}
	ln, err := Listen(ctx, "tcp", "127.0.0.1:0", opts)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer conn.Close()
		_, err = io.Copy(conn, conn)
		accepted <- err
	}()

	conn, err := Dial(ctx, "tcp", ln.Addr().String(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil || string(buf) != "ping" {
		t.Fatalf("echo = %q, %v", buf, err)
	}
	conn.Close()
	if err := <-accepted; err != nil {
		t.Fatalf("server side: %v", err)
	}
}

func TestDialFailureIsWrapped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ln, err := Listen(ctx, "tcp", "127.0.0.1:0", Options{})
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(ctx, "tcp", addr, Options{}); err == nil {
		t.Fatal("dial to closed port succeeded")
	}
}
