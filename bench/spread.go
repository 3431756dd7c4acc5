// File: bench/spread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bench

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

// spread is one logical array cut into equal per-node regions, the way
// the matrix kernels lay a matrix over the nodes.
type spread struct {
	parts [][]uint64
	per   int
}

func newSpread(a *pool.Allocator, kind api.RegionKind, nodes, per int) (*spread, error) {
	s := &spread{parts: make([][]uint64, nodes), per: per}
	for n := range s.parts {
		var err error
		if s.parts[n], err = a.Uint64s(kind, per, n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *spread) at(pos int) *uint64 { return &s.parts[pos/s.per][pos%s.per] }

// span returns the n words starting at pos; they must not cross a node.
func (s *spread) span(pos, n int) []uint64 {
	off := pos % s.per
	return s.parts[pos/s.per][off : off+n]
}

func (s *spread) len() int { return s.per * len(s.parts) }
