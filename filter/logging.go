// File: filter/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"net"

	"github.com/momentics/hioload-aio/api"
	"github.com/rs/zerolog"
)

// Logging writes session lifecycle events to a zerolog logger. Exceptions go
// out at warn level, per-frame traffic at trace level.
type Logging struct {
	Base
	log zerolog.Logger
}

// NewLogging returns a Logging filter bound to log.
func NewLogging(log zerolog.Logger) *Logging {
	return &Logging{log: log.With().Str("component", "session").Logger()}
}

func (l *Logging) ShouldAccept(conn net.Conn) bool {
	l.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("accepted")
	return true
}

func (l *Logging) AfterRead(s api.Session, f api.Frame) {
	l.log.Trace().Uint32("session", s.ID()).Int("bytes", f.Size()).Msg("frame in")
}

func (l *Logging) AfterWrite(s api.Session, n int) {
	l.log.Trace().Uint32("session", s.ID()).Int("bytes", n).Msg("flushed")
}

func (l *Logging) OnEvent(s api.Session, ev api.Event, err error) {
	event := l.log.Info()
	switch ev {
	case api.EventInputException, api.EventOutputException:
		event = l.log.Warn().Err(err)
	case api.EventSessionClosing:
		event = l.log.Debug()
	}
	event.
		Uint32("session", s.ID()).
		Stringer("remote", s.RemoteAddr()).
		Str("event", ev.String()).
		Msg("session_event")
}
