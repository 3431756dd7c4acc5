// File: collective/allreduce.go
// Author: momentics <momentics@gmail.com>
//
// Ring all-reduce (Add): num_nodes-1 reduce-scatter steps followed by
// num_nodes-1 all-gather steps around the ring node -> node+1.
// Receive slots are double buffered so a send overlaps the previous
// reduction; each slot has a data-ready doorbell written by the left
// neighbor and a buffer-empty doorbell written by the owner.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

type ringNode struct {
	input []float64
	recv  [2][]float64
	ready doorbell.Bank // [2], written by the left neighbor
	empty doorbell.Bank // [2], written by this node
}

// RingAllReduce sums every node's input elementwise into every node's input.
type RingAllReduce struct {
	cfg   Config
	seg   int
	nodes []ringNode
	count counters
}

// NewRingAllReduce allocates inputs, receive slots and doorbells.
// Elements must be divisible by Nodes.
func NewRingAllReduce(a *pool.Allocator, cfg Config) (*RingAllReduce, error) {
	if err := cfg.validate(1); err != nil {
		return nil, err
	}
	if cfg.Elements%cfg.Nodes != 0 {
		return nil, api.NewError(api.ErrCodeAlignment, "payload not divisible by node count").
			WithContext("elements", cfg.Elements).WithContext("nodes", cfg.Nodes)
	}
	seg := cfg.Elements / cfg.Nodes
	r := &RingAllReduce{cfg: cfg, seg: seg, nodes: make([]ringNode, cfg.Nodes), count: newCounters(cfg.Nodes)}
	for n := range r.nodes {
		rn := &r.nodes[n]
		var err error
		if rn.input, err = floats(a, api.RegionPlain, cfg.Elements, n); err != nil {
			return nil, err
		}
		slots, err := floats(a, api.RegionNonTemporal, 2*seg, n)
		if err != nil {
			return nil, err
		}
		rn.recv = [2][]float64{slots[:seg], slots[seg:]}
		if rn.ready, err = doorbell.NewBank(a, n, 2); err != nil {
			return nil, err
		}
		if rn.empty, err = doorbell.NewBank(a, n, 2); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Input returns node's payload buffer; it holds the reduced result after Run.
func (r *RingAllReduce) Input(node int) []float64 { return r.nodes[node].input }

// Run performs one all-reduce for node. Step tokens are derived from
// round so no two steps of any two rounds share a value.
func (r *RingAllReduce) Run(node int, round uint64, apply bool) {
	n := r.cfg.Nodes
	if n == 1 {
		r.count.round(node)
		return
	}
	self := &r.nodes[node]
	right := &r.nodes[(node+1)%n]
	base := round * 2 * uint64(n)
	stride := r.cfg.Stride

	// reduce-scatter
	for s := 0; s < n-1; s++ {
		b := s & 1
		tok := base + 1 + uint64(s)
		self.empty[b].Set(tok)
		right.empty[b].Wait(tok)
		send := (node - s + n) % n
		Send(api.PayloadIf(apply, segment(self.input, send, r.seg)), right.recv[b], &right.ready[b], tok, stride)
		self.ready[b].Wait(tok)
		if apply {
			recv := (node - s - 1 + n) % n
			Add(self.recv[b], segment(self.input, recv, r.seg))
		}
	}

	// all-gather; fully reduced blocks go straight into the neighbor's input
	for s := 0; s < n-1; s++ {
		b := (n - 1 + s) & 1
		tok := base + uint64(n) + uint64(s)
		self.empty[b].Set(tok)
		right.empty[b].Wait(tok)
		send := (node + 1 - s + n) % n
		if apply {
			Send(api.RealPayload(segment(self.input, send, r.seg)), segment(right.input, send, r.seg), &right.ready[b], tok, stride)
		} else {
			Send(api.Synthetic(), right.recv[b], &right.ready[b], tok, stride)
		}
		self.ready[b].Wait(tok)
	}
	r.count.stages(node, 2*(n-1))
	r.count.round(node)
}

// Stats returns round and step counters.
func (r *RingAllReduce) Stats() Stats { return r.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (r *RingAllReduce) Dump() map[string][]uint64 {
	out := make(map[string][]uint64, 2*len(r.nodes))
	for n := range r.nodes {
		out["ready."+itoa(n)] = r.nodes[n].ready.Snapshot()
		out["empty."+itoa(n)] = r.nodes[n].empty.Snapshot()
	}
	return out
}
