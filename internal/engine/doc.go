// File: internal/engine/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package engine drives sessions: one reader goroutine per session issues a
// single read at a time, completed reads compete for a fixed number of read
// permits, and reads that find no permit wait in a FIFO backlog that a
// watcher hands to the worker executor. Writes are queued per session and
// flushed by at most one writer at a time.
package engine
