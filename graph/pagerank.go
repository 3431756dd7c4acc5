// File: graph/pagerank.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PageRank in two barrier-separated phases per iteration. Scatter adds
// weight/out_degree of every owned vertex into each out-neighbor's
// incoming slot; combine folds incoming into weight with damping.

package graph

import (
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/pool"
)

// DefaultDamping is the damping factor used when none is set.
const DefaultDamping = 0.85

// PageRankConfig tunes a PageRank run.
type PageRankConfig struct {
	Damping   float64
	Threshold int
	Log       zerolog.Logger
}

// PageRank holds replicated topology and partitioned vertex state.
type PageRank struct {
	topo     api.Topology
	part     Partition
	graphs   []*CSR      // per node replica
	weight   [][]float64 // per node, VPerNode entries
	incoming [][]uint64  // per node, float64 bits
	barrier  *collective.Barrier
	damping  float64
	numE     float64
}

// NewPageRank replicates g on every node and allocates vertex state.
// Weights start at 1/num_v.
func NewPageRank(a *pool.Allocator, topo api.Topology, g *CSR, cfg PageRankConfig) (*PageRank, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	if g.NumE() == 0 {
		return nil, api.NewError(api.ErrCodeConfig, "pagerank needs at least one edge")
	}
	if cfg.Damping == 0 {
		cfg.Damping = DefaultDamping
	}
	if cfg.Damping < 0 || cfg.Damping > 1 {
		return nil, api.NewError(api.ErrCodeConfig, "damping out of range").WithContext("damping", cfg.Damping)
	}
	p := &PageRank{
		topo:     topo,
		part:     NewPartition(g.NumV(), topo.Nodes, topo.ThreadsPerNode, cfg.Threshold),
		graphs:   make([]*CSR, topo.Nodes),
		weight:   make([][]float64, topo.Nodes),
		incoming: make([][]uint64, topo.Nodes),
		damping:  cfg.Damping,
		numE:     float64(g.NumE()),
	}
	init := 1 / float64(g.NumV())
	var err error
	for n := 0; n < topo.Nodes; n++ {
		if p.graphs[n], err = g.Replicate(a, n); err != nil {
			return nil, err
		}
		cfg.Log.Debug().Int("node", n).Msg("copied CSR")
		if p.weight[n], err = a.Float64s(api.RegionNonTemporal, p.part.VPerNode, n); err != nil {
			return nil, err
		}
		for i := range p.weight[n] {
			p.weight[n][i] = init
		}
		if p.incoming[n], err = a.Uint64s(api.RegionNonTemporal, p.part.VPerNode, n); err != nil {
			return nil, err
		}
		cfg.Log.Debug().Int("node", n).Msg("allocated weights")
	}
	if p.barrier, err = collective.NewBarrier(a, topo); err != nil {
		return nil, err
	}
	return p, nil
}

// Partition returns the vertex split.
func (p *PageRank) Partition() Partition { return p.part }

// Barrier exposes the phase barrier for telemetry.
func (p *PageRank) Barrier() *collective.Barrier { return p.barrier }

// Iterate runs zero-based iteration iter for rank. Every participant
// must call it with the same iter sequence.
func (p *PageRank) Iterate(r api.Rank, iter uint64) {
	g := p.graphs[r.Node]
	begin, end := p.part.Range(r.Node, r.Thread)

	for u := begin; u < end; u++ {
		deg := g.OutDegree(u)
		if deg == 0 {
			continue
		}
		contrib := p.Weight(u) / float64(deg)
		for _, v := range g.Neighbors(u) {
			p.accumulate(int(v), contrib)
		}
	}
	p.barrier.Wait(r, 2*iter+1)

	base := p.damping / p.numE
	for u := begin; u < end; u++ {
		n, off := p.part.Owner(u)
		in := math.Float64frombits(atomic.SwapUint64(&p.incoming[n][off], 0))
		p.weight[n][off] = base + (1-p.damping)*in
	}
	p.barrier.Wait(r, 2*iter+2)
}

func (p *PageRank) accumulate(v int, delta float64) {
	n, off := p.part.Owner(v)
	slot := &p.incoming[n][off]
	for {
		old := atomic.LoadUint64(slot)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(slot, old, next) {
			return
		}
	}
}

// Weight returns the current weight of v.
func (p *PageRank) Weight(v int) float64 {
	n, off := p.part.Owner(v)
	return p.weight[n][off]
}

// Weights returns every vertex weight in id order.
func (p *PageRank) Weights() []float64 {
	out := make([]float64, p.part.NumV)
	for v := range out {
		out[v] = p.Weight(v)
	}
	return out
}
