// File: graph/csr.go
// Package graph implements the phase-synchronized graph kernels.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package graph

import (
	"slices"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

// CSR is a compressed sparse row adjacency: the out-neighbors of u are
// ColIdx[RowPtr[u]:RowPtr[u+1]].
type CSR struct {
	RowPtr []uint64
	ColIdx []uint64
}

// Edge is a directed edge From -> To.
type Edge struct{ From, To int }

// FromEdges builds a CSR over numV vertices. Self loops are dropped,
// duplicate edges removed and neighbor lists sorted.
func FromEdges(numV int, edges []Edge) (*CSR, error) {
	if numV < 1 {
		return nil, api.NewError(api.ErrCodeConfig, "graph must have a vertex").WithContext("num_v", numV)
	}
	nbrs := make([][]uint64, numV)
	for _, e := range edges {
		if e.From < 0 || e.From >= numV || e.To < 0 || e.To >= numV {
			return nil, api.NewError(api.ErrCodeConfig, "edge endpoint out of range").
				WithContext("from", e.From).WithContext("to", e.To)
		}
		if e.From == e.To {
			continue
		}
		nbrs[e.From] = append(nbrs[e.From], uint64(e.To))
	}
	g := &CSR{RowPtr: make([]uint64, numV+1)}
	for u, l := range nbrs {
		slices.Sort(l)
		l = slices.Compact(l)
		g.RowPtr[u] = uint64(len(g.ColIdx))
		g.ColIdx = append(g.ColIdx, l...)
	}
	g.RowPtr[numV] = uint64(len(g.ColIdx))
	return g, nil
}

// NumV returns the vertex count.
func (g *CSR) NumV() int { return len(g.RowPtr) - 1 }

// NumE returns the edge count.
func (g *CSR) NumE() int { return len(g.ColIdx) }

// OutDegree returns the number of out-neighbors of u.
func (g *CSR) OutDegree(u int) int { return int(g.RowPtr[u+1] - g.RowPtr[u]) }

// Neighbors returns the out-neighbors of u.
func (g *CSR) Neighbors(u int) []uint64 { return g.ColIdx[g.RowPtr[u]:g.RowPtr[u+1]] }

// Replicate copies g into plain regions owned by node.
func (g *CSR) Replicate(a *pool.Allocator, node int) (*CSR, error) {
	rows, err := a.Uint64s(api.RegionPlain, len(g.RowPtr), node)
	if err != nil {
		return nil, err
	}
	copy(rows, g.RowPtr)
	out := &CSR{RowPtr: rows}
	if len(g.ColIdx) > 0 {
		if out.ColIdx, err = a.Uint64s(api.RegionPlain, len(g.ColIdx), node); err != nil {
			return nil, err
		}
		copy(out.ColIdx, g.ColIdx)
	}
	return out, nil
}
