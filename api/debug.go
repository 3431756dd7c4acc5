// File: api/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Live state probes used by the hang watchdog.

package api

// Debug exposes runtime introspection for a running benchmark.
type Debug interface {
	// DumpState emits a snapshot of every registered probe.
	DumpState() map[string]any

	// RegisterProbe registers a named probe evaluated on each dump.
	RegisterProbe(name string, fn func() any)
}
