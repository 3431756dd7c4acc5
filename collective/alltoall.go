// File: collective/alltoall.go
// Author: momentics <momentics@gmail.com>
//
// Direct all-to-all. Each node sends its input to every peer as soon as
// that peer reports its slot empty, polling receivers round-robin so a
// slow peer does not stall the others.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// MaxAllToAllNodes bounds the pending-receiver bitmask.
const MaxAllToAllNodes = 64

// AllToAll delivers every node's Elements-word input to every other node.
type AllToAll struct {
	cfg   Config
	input [][]float64 // per node, Elements
	recv  [][]float64 // per node, Nodes*Elements; segment s came from node s
	data  *doorbell.Matrix
	empty *doorbell.Matrix
	count counters
}

// NewAllToAll allocates per-node buffers and the doorbell matrices.
func NewAllToAll(a *pool.Allocator, cfg Config) (*AllToAll, error) {
	if err := cfg.validate(1); err != nil {
		return nil, err
	}
	if cfg.Nodes > MaxAllToAllNodes {
		return nil, api.NewError(api.ErrCodeConfig, "too many nodes for all-to-all").
			WithContext("nodes", cfg.Nodes).WithContext("max", MaxAllToAllNodes)
	}
	x := &AllToAll{
		cfg:   cfg,
		input: make([][]float64, cfg.Nodes),
		recv:  make([][]float64, cfg.Nodes),
		count: newCounters(cfg.Nodes),
	}
	var err error
	for n := 0; n < cfg.Nodes; n++ {
		if x.input[n], err = floats(a, api.RegionPlain, cfg.Elements, n); err != nil {
			return nil, err
		}
		if x.recv[n], err = floats(a, api.RegionNonTemporal, cfg.Nodes*cfg.Elements, n); err != nil {
			return nil, err
		}
	}
	// data is (sender, receiver), empty is (receiver, sender)
	if x.data, err = doorbell.NewMatrix(a, 0, cfg.Nodes); err != nil {
		return nil, err
	}
	if x.empty, err = doorbell.NewMatrix(a, 0, cfg.Nodes); err != nil {
		return nil, err
	}
	return x, nil
}

// Input returns node's send buffer.
func (x *AllToAll) Input(node int) []float64 { return x.input[node] }

// Recv returns node's receive buffer; segment s holds node s's input.
// A node's own segment is never written.
func (x *AllToAll) Recv(node int) []float64 { return x.recv[node] }

// Run performs one exchange for node.
func (x *AllToAll) Run(node int, round uint64, apply bool) {
	n, e := x.cfg.Nodes, x.cfg.Elements
	for s := 0; s < n; s++ {
		if s != node {
			x.empty.At(node, s).Set(round)
		}
	}

	var pending uint64
	for j := 0; j < n; j++ {
		if j != node {
			pending |= 1 << uint(j)
		}
	}
	for j, spins := (node+1)%n, 1; pending != 0; j = (j + 1) % n {
		bit := uint64(1) << uint(j)
		if pending&bit == 0 {
			continue
		}
		if !x.empty.At(j, node).Poll(round) {
			doorbell.Relax(spins)
			spins++
			continue
		}
		Send(api.PayloadIf(apply, x.input[node]), segment(x.recv[j], node, e), x.data.At(node, j), round, x.cfg.Stride)
		pending &^= bit
	}
	x.count.stages(node, n-1)

	for s := 0; s < n; s++ {
		if s != node {
			x.data.At(s, node).Wait(round)
		}
	}
	x.count.round(node)
}

// Stats returns round and send counters.
func (x *AllToAll) Stats() Stats { return x.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (x *AllToAll) Dump() map[string][]uint64 {
	return map[string][]uint64{"data": x.data.Snapshot(), "empty": x.empty.Snapshot()}
}
