// File: collective/gather.go
// Author: momentics <momentics@gmail.com>
//
// Linear gather. The root opens the round with a go signal, every node
// sends its input into its segment of the root's buffer, and the root
// acknowledges each arrival on a separate cell. Go and ack never share
// a cell, so the next round's go cannot be mistaken for this round's ack.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// Gather collects every node's Elements words at the root.
type Gather struct {
	cfg   Config
	input [][]float64     // per node
	recv  []float64       // root only, Nodes*Elements
	data  doorbell.Bank   // on root, written by node i
	gos   []doorbell.Bank // per node, written by root with Neg(round)
	acks  []doorbell.Bank // per node, written by root with round
	count counters
}

// NewGather allocates per-node inputs and the root's receive buffer.
func NewGather(a *pool.Allocator, cfg Config) (*Gather, error) {
	if err := cfg.validate(1); err != nil {
		return nil, err
	}
	g := &Gather{
		cfg:   cfg,
		input: make([][]float64, cfg.Nodes),
		gos:   make([]doorbell.Bank, cfg.Nodes),
		acks:  make([]doorbell.Bank, cfg.Nodes),
		count: newCounters(cfg.Nodes),
	}
	var err error
	if g.recv, err = floats(a, api.RegionNonTemporal, cfg.Nodes*cfg.Elements, cfg.Root); err != nil {
		return nil, err
	}
	if g.data, err = doorbell.NewBank(a, cfg.Root, cfg.Nodes); err != nil {
		return nil, err
	}
	for n := 0; n < cfg.Nodes; n++ {
		if g.input[n], err = floats(a, api.RegionPlain, cfg.Elements, n); err != nil {
			return nil, err
		}
		if g.gos[n], err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
		if g.acks[n], err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Input returns node's send buffer.
func (g *Gather) Input(node int) []float64 { return g.input[node] }

// Recv returns the root's buffer; segment i holds node i's input.
func (g *Gather) Recv() []float64 { return g.recv }

// Run performs one gather for node.
func (g *Gather) Run(node int, round uint64, apply bool) {
	root, n := g.cfg.Root, g.cfg.Nodes
	if node != root {
		g.gos[node][0].Wait(doorbell.Neg(round))
		Send(api.PayloadIf(apply, g.input[node]), segment(g.recv, node, g.cfg.Elements), &g.data[node], round, g.cfg.Stride)
		g.count.stage(node)
		g.acks[node][0].Wait(round)
		g.count.round(node)
		return
	}
	if apply {
		copy(segment(g.recv, root, g.cfg.Elements), g.input[root])
	}
	for i := 0; i < n; i++ {
		if i != root {
			g.gos[i][0].Set(doorbell.Neg(round))
		}
	}
	for i := 0; i < n; i++ {
		if i != root {
			g.data[i].Wait(round)
		}
	}
	for i := 0; i < n; i++ {
		if i != root {
			g.acks[i][0].Set(round)
		}
	}
	g.count.round(node)
}

// Stats returns round and send counters.
func (g *Gather) Stats() Stats { return g.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (g *Gather) Dump() map[string][]uint64 {
	out := map[string][]uint64{"data": g.data.Snapshot()}
	for n := range g.gos {
		out["go."+itoa(n)] = g.gos[n].Snapshot()
		out["ack."+itoa(n)] = g.acks[n].Snapshot()
	}
	return out
}
