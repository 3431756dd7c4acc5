// File: graph/sssp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Batched SSSP relaxation under bucket spin locks. Each batch collects
// the lock buckets of every vertex it touches, sorts and deduplicates
// them, and acquires them in ascending order, so concurrent batches
// share one global lock order.

package graph

import (
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// Infinity marks an unreached vertex.
const Infinity = math.MaxUint64

// SSSPMode selects the update rule.
type SSSPMode int

const (
	// ModeCompat writes dist[v] = dist[u]+1 whether or not it improves,
	// reproducing the benchmark's access pattern. Results are not shortest
	// paths.
	ModeCompat SSSPMode = iota
	// ModeRelax only lowers dist[v].
	ModeRelax
)

func (m SSSPMode) String() string {
	if m == ModeRelax {
		return "relax"
	}
	return "compat"
}

// ParseSSSPMode accepts "compat" or "relax".
func ParseSSSPMode(s string) (SSSPMode, error) {
	switch strings.ToLower(s) {
	case "compat":
		return ModeCompat, nil
	case "relax":
		return ModeRelax, nil
	}
	return 0, api.NewError(api.ErrCodeConfig, "unknown sssp mode").WithContext("mode", s)
}

// SSSPConfig tunes an SSSP run.
type SSSPConfig struct {
	Source    int
	BatchSize int
	VPerLock  int
	Threshold int
	Mode      SSSPMode
	Log       zerolog.Logger
}

type bucketLock struct {
	held atomic.Uint32
	_    [doorbell.CellSize - 4]byte
}

func (l *bucketLock) lock() {
	for i := 1; !l.held.CompareAndSwap(0, 1); i++ {
		doorbell.Relax(i)
	}
}

func (l *bucketLock) unlock() { l.held.Store(0) }

type batch struct {
	verts []int
	keys  []int
}

// SSSP holds replicated topology, partitioned distances and lock buckets.
type SSSP struct {
	cfg      SSSPConfig
	topo     api.Topology
	part     Partition
	graphs   []*CSR
	dist     [][]uint64
	locks    [][]bucketLock
	lPerNode int
	scratch  []batch // per participant
	acquired []atomic.Uint64
}

// NewSSSP replicates g and allocates distances and locks per node.
func NewSSSP(a *pool.Allocator, topo api.Topology, g *CSR, cfg SSSPConfig) (*SSSP, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.BatchSize < 1:
		return nil, api.NewError(api.ErrCodeConfig, "batch size must be positive").WithContext("batch", cfg.BatchSize)
	case cfg.VPerLock < 1:
		return nil, api.NewError(api.ErrCodeConfig, "vertices per lock must be positive").WithContext("v_per_lock", cfg.VPerLock)
	case cfg.Source < 0 || cfg.Source >= g.NumV():
		return nil, api.NewError(api.ErrCodeConfig, "source out of range").WithContext("source", cfg.Source)
	}
	s := &SSSP{
		cfg:      cfg,
		topo:     topo,
		part:     NewPartition(g.NumV(), topo.Nodes, topo.ThreadsPerNode, cfg.Threshold),
		graphs:   make([]*CSR, topo.Nodes),
		dist:     make([][]uint64, topo.Nodes),
		locks:    make([][]bucketLock, topo.Nodes),
		scratch:  make([]batch, topo.Participants()),
		acquired: make([]atomic.Uint64, topo.Participants()),
	}
	s.lPerNode = (s.part.VPerNode + cfg.VPerLock - 1) / cfg.VPerLock
	var err error
	for n := 0; n < topo.Nodes; n++ {
		if s.graphs[n], err = g.Replicate(a, n); err != nil {
			return nil, err
		}
		cfg.Log.Debug().Int("node", n).Msg("copied CSR")
		if s.dist[n], err = a.Uint64s(api.RegionNonTemporal, s.part.VPerNode, n); err != nil {
			return nil, err
		}
		for i := range s.dist[n] {
			s.dist[n][i] = Infinity
		}
		cfg.Log.Debug().Int("node", n).Msg("allocated dists")
		r, err := a.ReleaseOrdered(s.lPerNode*int(unsafe.Sizeof(bucketLock{})), n)
		if err != nil {
			return nil, err
		}
		s.locks[n] = unsafe.Slice((*bucketLock)(unsafe.Pointer(&r.Bytes()[0])), s.lPerNode)
		cfg.Log.Debug().Int("node", n).Msg("allocated locks")
	}
	sn, so := s.part.Owner(cfg.Source)
	s.dist[sn][so] = 0
	for i := range s.scratch {
		s.scratch[i] = batch{
			verts: make([]int, 0, cfg.BatchSize),
			keys:  make([]int, 0, cfg.BatchSize*8),
		}
	}
	return s, nil
}

// Partition returns the vertex split.
func (s *SSSP) Partition() Partition { return s.part }

// bucket returns v's global lock key; keys order first by node. Buckets are
// counted from the owning node's first vertex rather than as v/VPerLock, so
// a bucket never spans two nodes and its lock lives on the owner.
func (s *SSSP) bucket(v int) int {
	n, off := s.part.Owner(v)
	return n*s.lPerNode + off/s.cfg.VPerLock
}

func (s *SSSP) lockAt(key int) *bucketLock {
	return &s.locks[key/s.lPerNode][key%s.lPerNode]
}

func (s *SSSP) at(v int) *uint64 {
	n, off := s.part.Owner(v)
	return &s.dist[n][off]
}

// Round runs one pass over rank's vertex range.
func (s *SSSP) Round(r api.Rank) {
	g := s.graphs[r.Node]
	b := &s.scratch[s.topo.Index(r)]
	begin, end := s.part.Range(r.Node, r.Thread)
	for u := begin; u < end; u++ {
		if g.OutDegree(u) == 0 {
			continue
		}
		b.verts = append(b.verts, u)
		b.keys = append(b.keys, s.bucket(u))
		for _, v := range g.Neighbors(u) {
			b.keys = append(b.keys, s.bucket(int(v)))
		}
		if len(b.verts) == s.cfg.BatchSize {
			s.flush(r, g, b)
		}
	}
	if len(b.verts) > 0 {
		s.flush(r, g, b)
	}
}

func (s *SSSP) flush(r api.Rank, g *CSR, b *batch) {
	slices.Sort(b.keys)
	b.keys = slices.Compact(b.keys)
	for _, k := range b.keys {
		s.lockAt(k).lock()
	}
	s.acquired[s.topo.Index(r)].Add(uint64(len(b.keys)))

	for _, u := range b.verts {
		next := *s.at(u)
		if next != Infinity {
			next++
		}
		for _, v := range g.Neighbors(u) {
			d := s.at(int(v))
			if s.cfg.Mode == ModeCompat || next < *d {
				*d = next
			}
		}
	}

	for _, k := range b.keys {
		s.lockAt(k).unlock()
	}
	b.verts, b.keys = b.verts[:0], b.keys[:0]
}

// Dist returns the distance of v; Infinity if unreached.
func (s *SSSP) Dist(v int) uint64 { return *s.at(v) }

// Dists returns every distance in id order.
func (s *SSSP) Dists() []uint64 {
	out := make([]uint64, s.part.NumV)
	for v := range out {
		out[v] = s.Dist(v)
	}
	return out
}

// LocksAcquired returns the total number of bucket acquisitions.
func (s *SSSP) LocksAcquired() uint64 {
	var n uint64
	for i := range s.acquired {
		n += s.acquired[i].Load()
	}
	return n
}
