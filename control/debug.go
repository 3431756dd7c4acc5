// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Probe registry used to inspect doorbell state of a stuck run.

package control

import (
	"slices"
	"sync"

	"github.com/momentics/hioload-coll/api"
)

var _ api.Debug = (*DebugProbes)(nil)

// Dumper is implemented by every collective that exposes its doorbells.
type Dumper interface {
	Dump() map[string][]uint64
}

// DebugProbes maps probe names to snapshot functions. Probes run on the
// caller's goroutine while workers keep spinning, so they must only read.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe adds or replaces the probe called name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	dp.probes[name] = fn
	dp.mu.Unlock()
}

// RegisterDumper exposes d's doorbells under name.
func (dp *DebugProbes) RegisterDumper(name string, d Dumper) {
	dp.RegisterProbe(name, func() any { return d.Dump() })
}

// Names lists registered probes in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	dp.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Probe evaluates a single probe; ok is false for an unknown name.
func (dp *DebugProbes) Probe(name string) (v any, ok bool) {
	dp.mu.RLock()
	fn, ok := dp.probes[name]
	dp.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return fn(), true
}

// DumpState evaluates every probe.
func (dp *DebugProbes) DumpState() map[string]any {
	out := make(map[string]any)
	for _, name := range dp.Names() {
		if v, ok := dp.Probe(name); ok {
			out[name] = v
		}
	}
	return out
}
