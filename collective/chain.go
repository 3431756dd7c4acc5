// File: collective/chain.go
// Author: momentics <momentics@gmail.com>
//
// Chained node sync. Threads fan in to their node leader with +r and are
// released with -r, as in Barrier. Leaders do not meet at a root: the leader
// of node n signals node n-1 and waits for node n+1. A node therefore only
// orders itself against its successor, which is all a row-partitioned
// kernel touching neighbouring rows needs.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// ChainSync is the per-round separator of the padding kernel.
type ChainSync struct {
	topo  api.Topology
	local []doorbell.Bank // per node, one cell per thread
	links []doorbell.Bank // links[n] lives on node n, written by leader n+1
	count counters
}

// NewChainSync allocates the local and link doorbells.
func NewChainSync(a *pool.Allocator, topo api.Topology) (*ChainSync, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	c := &ChainSync{
		topo:  topo,
		local: make([]doorbell.Bank, topo.Nodes),
		links: make([]doorbell.Bank, topo.Nodes),
		count: newCounters(topo.Nodes),
	}
	var err error
	for n := 0; n < topo.Nodes; n++ {
		if c.local[n], err = doorbell.NewBank(a, n, topo.ThreadsPerNode); err != nil {
			return nil, err
		}
		if c.links[n], err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Wait runs the local fan-in and the chain step for round.
// round must be positive and strictly increasing across calls.
func (c *ChainSync) Wait(r api.Rank, round uint64) {
	c.sync(r, round, true, nil)
}

// Local runs only the intra-node fan-in. The leader calls fn after every
// thread of its node arrived and before any of them is released, so fn
// observes all their writes of this round.
func (c *ChainSync) Local(r api.Rank, round uint64, fn func()) {
	c.sync(r, round, false, fn)
}

func (c *ChainSync) sync(r api.Rank, round uint64, chain bool, fn func()) {
	n, t := r.Node, r.Thread
	local := c.local[n]
	if t != 0 {
		local[t].Set(round)
		local[t].Wait(doorbell.Neg(round))
		return
	}
	for tid := 1; tid < c.topo.ThreadsPerNode; tid++ {
		local[tid].Wait(round)
	}
	c.count.stage(n)
	if fn != nil {
		fn()
	}
	if chain {
		if n > 0 {
			c.links[n-1][0].Set(round)
		}
		if n < c.topo.Nodes-1 {
			c.links[n][0].Wait(round)
		}
		c.count.stage(n)
	}
	for tid := 1; tid < c.topo.ThreadsPerNode; tid++ {
		local[tid].Set(doorbell.Neg(round))
	}
	c.count.round(n)
}

// Stats returns completed rounds and leader stages.
func (c *ChainSync) Stats() Stats { return c.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (c *ChainSync) Dump() map[string][]uint64 {
	out := make(map[string][]uint64, 2*len(c.local))
	for n := range c.local {
		out["local."+itoa(n)] = c.local[n].Snapshot()
		out["link."+itoa(n)] = c.links[n].Snapshot()
	}
	return out
}
