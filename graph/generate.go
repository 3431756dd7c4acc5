// File: graph/generate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Synthetic graph generators.

package graph

import (
	"math/rand/v2"

	"github.com/momentics/hioload-coll/api"
)

// Ring returns the directed cycle 0 -> 1 -> ... -> n-1 -> 0.
func Ring(n int) (*CSR, error) {
	edges := make([]Edge, 0, n)
	for u := 0; u < n; u++ {
		edges = append(edges, Edge{u, (u + 1) % n})
	}
	return FromEdges(n, edges)
}

// Grid returns a w x h grid with edges in both directions between
// horizontally and vertically adjacent cells. Vertex id is y*w + x.
func Grid(w, h int) (*CSR, error) {
	if w < 1 || h < 1 {
		return nil, api.NewError(api.ErrCodeConfig, "grid dimensions must be positive").
			WithContext("w", w).WithContext("h", h)
	}
	var edges []Edge
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := y*w + x
			if x+1 < w {
				edges = append(edges, Edge{u, u + 1}, Edge{u + 1, u})
			}
			if y+1 < h {
				edges = append(edges, Edge{u, u + w}, Edge{u + w, u})
			}
		}
	}
	return FromEdges(w*h, edges)
}

// Random returns a graph where every vertex draws degree out-neighbors
// uniformly. The same seed yields the same graph.
func Random(n, degree int, seed uint64) (*CSR, error) {
	if degree < 0 {
		return nil, api.NewError(api.ErrCodeConfig, "degree must not be negative").WithContext("degree", degree)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	edges := make([]Edge, 0, n*degree)
	for u := 0; u < n; u++ {
		for k := 0; k < degree; k++ {
			edges = append(edges, Edge{u, rng.IntN(n)})
		}
	}
	return FromEdges(n, edges)
}
