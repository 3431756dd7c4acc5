// File: collective/scatter.go
// Author: momentics <momentics@gmail.com>
//
// Linear scatter: the root sends segment i of its input to node i once
// node i has announced it is ready for the round.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// Scatter distributes the root's Nodes*Elements input, one segment per node.
type Scatter struct {
	cfg   Config
	input []float64       // root only
	recv  [][]float64     // per node
	ready doorbell.Bank   // on root, written by node i with Neg(round)
	data  []doorbell.Bank // per node, written by root
	count counters
}

// NewScatter allocates the root input and per-node receive buffers.
func NewScatter(a *pool.Allocator, cfg Config) (*Scatter, error) {
	if err := cfg.validate(1); err != nil {
		return nil, err
	}
	s := &Scatter{
		cfg:   cfg,
		recv:  make([][]float64, cfg.Nodes),
		data:  make([]doorbell.Bank, cfg.Nodes),
		count: newCounters(cfg.Nodes),
	}
	var err error
	if s.input, err = floats(a, api.RegionPlain, cfg.Nodes*cfg.Elements, cfg.Root); err != nil {
		return nil, err
	}
	if s.ready, err = doorbell.NewBank(a, cfg.Root, cfg.Nodes); err != nil {
		return nil, err
	}
	for n := 0; n < cfg.Nodes; n++ {
		if s.recv[n], err = floats(a, api.RegionNonTemporal, cfg.Elements, n); err != nil {
			return nil, err
		}
		if s.data[n], err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Input returns the root's send buffer; segment i is destined for node i.
func (s *Scatter) Input() []float64 { return s.input }

// Recv returns node's receive buffer.
func (s *Scatter) Recv(node int) []float64 { return s.recv[node] }

// Run performs one scatter for node.
func (s *Scatter) Run(node int, round uint64, apply bool) {
	root := s.cfg.Root
	if node != root {
		s.ready[node].Set(doorbell.Neg(round))
		s.data[node][0].Wait(round)
		s.count.round(node)
		return
	}
	for i := 0; i < s.cfg.Nodes; i++ {
		seg := segment(s.input, i, s.cfg.Elements)
		if i == root {
			if apply {
				copy(s.recv[i], seg)
			}
			continue
		}
		s.ready[i].Wait(doorbell.Neg(round))
		Send(api.PayloadIf(apply, seg), s.recv[i], &s.data[i][0], round, s.cfg.Stride)
		s.count.stage(node)
	}
	s.count.round(node)
}

// Stats returns round and send counters.
func (s *Scatter) Stats() Stats { return s.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (s *Scatter) Dump() map[string][]uint64 {
	out := map[string][]uint64{"ready": s.ready.Snapshot()}
	for n := range s.data {
		out["data."+itoa(n)] = s.data[n].Snapshot()
	}
	return out
}
