package filter_test

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/filter"
	"github.com/rs/zerolog"
)

type stubSession struct{ id uint32 }

func (s *stubSession) ID() uint32               { return s.id }
func (s *stubSession) LocalAddr() net.Addr      { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1} }
func (s *stubSession) RemoteAddr() net.Addr     { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2} }
func (s *stubSession) Status() api.Status       { return api.StatusEnabled }
func (s *stubSession) Write(api.Frame) error    { return nil }
func (s *stubSession) TryWrite(api.Frame) error { return nil }
func (s *stubSession) Close(bool) error         { return nil }
func (s *stubSession) Done() <-chan struct{}    { return nil }
func (s *stubSession) Attr(string) (any, bool)  { return nil, false }
func (s *stubSession) SetAttr(string, any)      {}

type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c addrConn) RemoteAddr() net.Addr { return c.remote }

func tcpConn(ip string) net.Conn {
	return addrConn{remote: &net.TCPAddr{IP: net.ParseIP(ip), Port: 4000}}
}

// recorder logs every hook call and answers veto hooks with allow.
type recorder struct {
	filter.Base
	name  string
	allow bool
	calls *[]string
}

func (r recorder) BeforeRead(api.Session, int) bool {
	*r.calls = append(*r.calls, r.name+":before-read")
	return r.allow
}

func (r recorder) BeforeWrite(api.Session, api.Frame) bool {
	*r.calls = append(*r.calls, r.name+":before-write")
	return r.allow
}

func (r recorder) OnEvent(_ api.Session, ev api.Event, _ error) {
	*r.calls = append(*r.calls, r.name+":"+ev.String())
}

func TestChainOrderAndVeto(t *testing.T) {
	var calls []string
	chain := filter.NewChain(zerolog.Nop(),
		recorder{name: "a", allow: false, calls: &calls},
		nil,
		recorder{name: "b", allow: true, calls: &calls},
	)
	if chain.Len() != 2 {
		t.Fatalf("len = %d", chain.Len())
	}
	s := &stubSession{id: 1}

	if chain.BeforeRead(s, 10) {
		t.Error("veto from first filter ignored")
	}
	if chain.BeforeWrite(s, api.Frame{}) {
		t.Error("write veto ignored")
	}
	chain.OnEvent(s, api.EventSessionClosed, nil)

	want := []string{
		"a:before-read", "b:before-read",
		"a:before-write", "b:before-write",
		"a:SESSION_CLOSED", "b:SESSION_CLOSED",
	}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", calls)
	}
}

type panicky struct{ filter.Base }

func (panicky) OnEvent(api.Session, api.Event, error) { panic("bad filter") }
func (panicky) BeforeRead(api.Session, int) bool      { panic("bad filter") }

func TestChainContainsPanics(t *testing.T) {
	var buf bytes.Buffer
	stats := filter.NewStats()
	chain := filter.NewChain(zerolog.New(&buf), panicky{}, stats)
	s := &stubSession{id: 7}

	chain.OnEvent(s, api.EventNewSession, nil)
	if stats.Snapshot().Opened != 1 {
		t.Fatal("event did not reach the filter after the panicking one")
	}
	if chain.BeforeRead(s, 3) {
		t.Error("panicking pre-read should count as a veto")
	}
	if !strings.Contains(buf.String(), "filter panicked") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestStatsSnapshot(t *testing.T) {
	st := filter.NewStats()
	s := &stubSession{id: 1}
	st.OnEvent(s, api.EventNewSession, nil)
	st.OnEvent(s, api.EventNewSession, nil)
	st.BeforeRead(s, 20)
	st.AfterRead(s, api.Frame{Data: []byte("x")})
	st.BeforeWrite(s, api.Frame{})
	st.AfterWrite(s, 12)
	st.OnEvent(s, api.EventInputException, errors.New("x"))
	st.OnEvent(s, api.EventSessionClosed, nil)

	got := st.Snapshot()
	want := filter.Snapshot{
		Opened: 2, Closed: 1, Active: 1,
		FramesIn: 1, FramesOut: 1,
		BytesIn: 20, BytesOut: 12,
		InputErrors: 1,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAllowList(t *testing.T) {
	al, err := filter.NewAllowList("10.0.0.0/8", "192.168.1.5", "::1")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"11.0.0.1", false},
		{"192.168.1.5", true},
		{"192.168.1.6", false},
		{"::1", true},
	}
	for _, tc := range cases {
		if got := al.ShouldAccept(tcpConn(tc.ip)); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.ip, got, tc.want)
		}
	}

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	if al.ShouldAccept(c1) {
		t.Error("pipe address accepted")
	}

	if _, err := filter.NewAllowList("not-an-ip"); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("bad entry: %v", err)
	}
}

func TestLoggingWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	lf := filter.NewLogging(zerolog.New(&buf))
	s := &stubSession{id: 42}
	lf.OnEvent(s, api.EventNewSession, nil)
	lf.OnEvent(s, api.EventOutputException, errors.New("broken pipe"))

	out := buf.String()
	for _, want := range []string{`"event":"NEW_SESSION"`, `"session":42`, `"level":"warn"`, "broken pipe"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}
