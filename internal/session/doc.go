// File: internal/session/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package session keeps the live-session registry and the per-session
// attribute store used by api.Session.Attr/SetAttr.
package session
