// File: graph/reference.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sequential reference solvers used to verify the parallel kernels.

package graph

import (
	"github.com/eapache/queue"
	"gonum.org/v1/gonum/mat"

	"github.com/momentics/hioload-coll/api"
)

// BFS returns unit-weight shortest path lengths from src; unreachable
// vertices are Infinity.
func BFS(g *CSR, src int) []uint64 {
	dist := make([]uint64, g.NumV())
	for i := range dist {
		dist[i] = Infinity
	}
	dist[src] = 0
	q := queue.New()
	q.Add(src)
	for q.Length() > 0 {
		u := q.Remove().(int)
		for _, v := range g.Neighbors(u) {
			if dist[v] == Infinity {
				dist[v] = dist[u] + 1
				q.Add(int(v))
			}
		}
	}
	return dist
}

// PageRankFixedPoint solves w = damping/num_e + (1-damping) * M w exactly,
// where M[v][u] = 1/out_degree(u) for every edge u -> v.
func PageRankFixedPoint(g *CSR, damping float64) ([]float64, error) {
	n := g.NumV()
	if g.NumE() == 0 {
		return nil, api.NewError(api.ErrCodeConfig, "pagerank needs at least one edge")
	}
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
	}
	for u := 0; u < n; u++ {
		deg := g.OutDegree(u)
		for _, v := range g.Neighbors(u) {
			a.Set(int(v), u, a.At(int(v), u)-(1-damping)/float64(deg))
		}
	}
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, damping/float64(g.NumE()))
	}
	var w mat.VecDense
	if err := w.SolveVec(a, b); err != nil {
		return nil, api.NewError(api.ErrCodeInternal, "pagerank system is singular").Wrap(err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = w.AtVec(i)
	}
	return out, nil
}

// PageRankIterations replays iters PageRank iterations sequentially from
// the 1/num_v start, matching PageRank.Iterate with no threshold.
func PageRankIterations(g *CSR, damping float64, iters int) []float64 {
	n := g.NumV()
	w := make([]float64, n)
	in := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	base := damping / float64(g.NumE())
	for it := 0; it < iters; it++ {
		for u := 0; u < n; u++ {
			deg := g.OutDegree(u)
			if deg == 0 {
				continue
			}
			c := w[u] / float64(deg)
			for _, v := range g.Neighbors(u) {
				in[v] += c
			}
		}
		for u := range w {
			w[u] = base + (1-damping)*in[u]
			in[u] = 0
		}
	}
	return w
}
