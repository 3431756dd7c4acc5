// File: collective/barrier.go
// Author: momentics <momentics@gmail.com>
//
// Hierarchical barrier: thread-to-leader fan-in inside a node, then a star
// exchange between node leaders rooted at node 0.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// Barrier is an N-thread rendezvous reusable every round.
type Barrier struct {
	topo    api.Topology
	local   []doorbell.Bank // per node, one cell per thread
	global  doorbell.Bank   // on node 0, one cell per node
	reverse []doorbell.Bank // per node, written by node 0's leader
	count   counters
}

// NewBarrier allocates the local, global and reverse doorbells.
func NewBarrier(a *pool.Allocator, topo api.Topology) (*Barrier, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	b := &Barrier{
		topo:    topo,
		local:   make([]doorbell.Bank, topo.Nodes),
		reverse: make([]doorbell.Bank, topo.Nodes),
		count:   newCounters(topo.Nodes),
	}
	var err error
	for n := 0; n < topo.Nodes; n++ {
		if b.local[n], err = doorbell.NewBank(a, n, topo.ThreadsPerNode); err != nil {
			return nil, err
		}
		if b.reverse[n], err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
	}
	if b.global, err = doorbell.NewBank(a, 0, topo.Nodes); err != nil {
		return nil, err
	}
	return b, nil
}

// Wait blocks rank until every participant has called Wait with round.
// round must be positive and strictly increasing across calls.
func (b *Barrier) Wait(r api.Rank, round uint64) {
	n, t := r.Node, r.Thread
	local := b.local[n]
	if t != 0 {
		local[t].Set(round)
		local[t].Wait(doorbell.Neg(round))
		return
	}
	for tid := 1; tid < b.topo.ThreadsPerNode; tid++ {
		local[tid].Wait(round)
	}
	b.count.stage(n)
	if n == 0 {
		for nid := 1; nid < b.topo.Nodes; nid++ {
			b.global[nid].Wait(round)
		}
		for nid := 1; nid < b.topo.Nodes; nid++ {
			b.reverse[nid][0].Set(doorbell.Neg(round))
		}
	} else {
		b.global[n].Set(round)
		b.reverse[n][0].Wait(doorbell.Neg(round))
	}
	b.count.stage(n)
	for tid := 1; tid < b.topo.ThreadsPerNode; tid++ {
		local[tid].Set(doorbell.Neg(round))
	}
	b.count.round(n)
}

// Stats returns completed rounds and leader stages.
func (b *Barrier) Stats() Stats { return b.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (b *Barrier) Dump() map[string][]uint64 {
	out := map[string][]uint64{"global": b.global.Snapshot()}
	for n := range b.local {
		out["local."+itoa(n)] = b.local[n].Snapshot()
		out["reverse."+itoa(n)] = b.reverse[n].Snapshot()
	}
	return out
}
