// File: collective/reduce.go
// Author: momentics <momentics@gmail.com>
//
// Binary-tree reduce rooted at node 0. Node n's children are 2n+1 (left,
// slot 1) and 2n+2 (right, slot 0); its parent is (n-1)/2.

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

type treeNode struct {
	input []float64
	recv  [2][]float64
	ready doorbell.Bank // [2], written by the children
	empty doorbell.Bank // [1], written by the parent: ready to receive
}

// TreeReduce sums every node's input into node 0's input. Inner nodes are
// left holding their subtree's partial sum.
type TreeReduce struct {
	cfg   Config
	nodes []treeNode
	count counters
}

// NewTreeReduce allocates the tree. Root must be 0.
func NewTreeReduce(a *pool.Allocator, cfg Config) (*TreeReduce, error) {
	if err := cfg.validate(1); err != nil {
		return nil, err
	}
	if cfg.Root != 0 {
		return nil, api.NewError(api.ErrCodeConfig, "tree reduce must be rooted at 0").WithContext("root", cfg.Root)
	}
	t := &TreeReduce{cfg: cfg, nodes: make([]treeNode, cfg.Nodes), count: newCounters(cfg.Nodes)}
	for n := range t.nodes {
		tn := &t.nodes[n]
		var err error
		if tn.input, err = floats(a, api.RegionPlain, cfg.Elements, n); err != nil {
			return nil, err
		}
		slots, err := floats(a, api.RegionNonTemporal, 2*cfg.Elements, n)
		if err != nil {
			return nil, err
		}
		tn.recv = [2][]float64{slots[:cfg.Elements], slots[cfg.Elements:]}
		if tn.ready, err = doorbell.NewBank(a, n, 2); err != nil {
			return nil, err
		}
		if tn.empty, err = doorbell.NewBank(a, n, 1); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Input returns node's payload buffer.
func (t *TreeReduce) Input(node int) []float64 { return t.nodes[node].input }

// Run performs one reduce step for node.
func (t *TreeReduce) Run(node int, round uint64, apply bool) {
	self := &t.nodes[node]
	left, right := 2*node+1, 2*node+2
	hasLeft, hasRight := left < t.cfg.Nodes, right < t.cfg.Nodes

	if hasLeft {
		t.nodes[left].empty[0].Set(round)
	}
	if hasRight {
		t.nodes[right].empty[0].Set(round)
	}
	if hasLeft {
		self.ready[1].Wait(round)
	}
	if hasRight {
		self.ready[0].Wait(round)
	}
	if apply {
		if hasLeft {
			Add(self.recv[1], self.input)
		}
		if hasRight {
			Add(self.recv[0], self.input)
		}
	}
	if node != 0 {
		parent := &t.nodes[(node-1)/2]
		self.empty[0].Wait(round)
		Send(api.PayloadIf(apply, self.input), parent.recv[node&1], &parent.ready[node&1], round, t.cfg.Stride)
		t.count.stage(node)
	}
	t.count.round(node)
}

// Stats returns round and forward counters.
func (t *TreeReduce) Stats() Stats { return t.count.snapshot() }

// Dump returns every doorbell value for debug probes.
func (t *TreeReduce) Dump() map[string][]uint64 {
	out := make(map[string][]uint64, 2*len(t.nodes))
	for n := range t.nodes {
		out["ready."+itoa(n)] = t.nodes[n].ready.Snapshot()
		out["empty."+itoa(n)] = t.nodes[n].empty.Snapshot()
	}
	return out
}
