// File: collective/config.go
// Author: momentics <momentics@gmail.com>

package collective

import (
	"sync/atomic"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

// Config sizes one collective instance.
type Config struct {
	// Nodes is the number of participants.
	Nodes int
	// Elements is the per-participant payload in float64 words.
	Elements int
	// Stride is the copy granularity in words; 1 is a full copy.
	Stride int
	// Root is the rooted collectives' root id.
	Root int
}

func (c Config) validate(minNodes int) error {
	switch {
	case c.Nodes < minNodes:
		return api.NewError(api.ErrCodeConfig, "too few nodes").
			WithContext("nodes", c.Nodes).WithContext("min", minNodes)
	case c.Elements < 1:
		return api.NewError(api.ErrCodeConfig, "payload must not be empty").WithContext("elements", c.Elements)
	case c.Stride < 1:
		return api.NewError(api.ErrCodeConfig, "stride must be positive").WithContext("stride", c.Stride)
	case c.Root < 0 || c.Root >= c.Nodes:
		return api.NewError(api.ErrCodeConfig, "root out of range").WithContext("root", c.Root)
	}
	return nil
}

// Stats reports round and stage counters for telemetry.
type Stats struct {
	Rounds uint64
	Stages uint64
}

type nodeCounter struct {
	rounds atomic.Uint64
	stages atomic.Uint64
	_      [pool.CacheLineSize - 16]byte
}

// counters holds one padded counter pair per node; each is node-private.
type counters []nodeCounter

func newCounters(n int) counters { return make(counters, n) }

func (c counters) stage(node int)     { c[node].stages.Add(1) }
func (c counters) stages(node, k int) { c[node].stages.Add(uint64(k)) }
func (c counters) round(node int)     { c[node].rounds.Add(1) }

// snapshot returns the slowest node's rounds and the total stage count.
func (c counters) snapshot() Stats {
	var s Stats
	for i := range c {
		r := c[i].rounds.Load()
		if i == 0 || r < s.Rounds {
			s.Rounds = r
		}
		s.Stages += c[i].stages.Load()
	}
	return s
}

// floats allocates n words of kind for node.
func floats(a *pool.Allocator, kind api.RegionKind, n, node int) ([]float64, error) {
	return a.Float64s(kind, n, node)
}
