// File: filter/base.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"net"

	"github.com/momentics/hioload-aio/api"
)

// Base implements every hook as a pass-through. Embed it and override what
// you need.
type Base struct{}

var _ api.Filter = Base{}

func (Base) ShouldAccept(net.Conn) bool              { return true }
func (Base) BeforeRead(api.Session, int) bool        { return true }
func (Base) AfterRead(api.Session, api.Frame)        {}
func (Base) BeforeWrite(api.Session, api.Frame) bool { return true }
func (Base) AfterWrite(api.Session, int)             {}
func (Base) OnEvent(api.Session, api.Event, error)   {}
