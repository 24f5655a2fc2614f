// File: api/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named state probes read on demand for diagnostics.

package api

// Debug is a registry of named probes. A runtime registers probes for its
// page pool, engine counters, executor and live session count; DumpState
// evaluates every probe at call time.
type Debug interface {
	// DumpState returns each probe's current value keyed by probe name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces the probe called name.
	RegisterProbe(name string, fn func() any)
}
