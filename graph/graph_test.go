package graph_test

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/graph"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/pool"
)

func run(t *testing.T, topo api.Topology, fn func(w *concurrency.Worker)) {
	t.Helper()
	f, err := concurrency.NewFabric(topo)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		done <- f.Run(context.Background(), func(w *concurrency.Worker) error {
			fn(w)
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("kernel did not complete")
	}
}

func TestFromEdgesNormalizes(t *testing.T) {
	g, err := graph.FromEdges(3, []graph.Edge{{0, 2}, {0, 1}, {0, 2}, {1, 1}, {2, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.RowPtr, []uint64{0, 2, 2, 3}) || !slices.Equal(g.ColIdx, []uint64{1, 2, 0}) {
		t.Fatalf("row_ptr %v col_idx %v", g.RowPtr, g.ColIdx)
	}
	if _, err := graph.FromEdges(2, []graph.Edge{{0, 5}}); err == nil {
		t.Fatal("out-of-range edge accepted")
	}
}

func TestGenerators(t *testing.T) {
	g, _ := graph.Grid(3, 2)
	if g.NumV() != 6 || g.NumE() != 14 {
		t.Fatalf("grid %d vertices %d edges", g.NumV(), g.NumE())
	}
	a, _ := graph.Random(50, 4, 7)
	b, _ := graph.Random(50, 4, 7)
	if !slices.Equal(a.ColIdx, b.ColIdx) {
		t.Fatal("random graph not reproducible")
	}
	for u := 0; u < a.NumV(); u++ {
		if slices.Contains(a.Neighbors(u), uint64(u)) {
			t.Fatalf("self loop at %d", u)
		}
	}
}

func TestPartitionClamped(t *testing.T) {
	p := graph.NewPartition(10, 3, 3, 0)
	seen := make([]int, 10)
	for n := 0; n < 3; n++ {
		for th := 0; th < 3; th++ {
			b, e := p.Range(n, th)
			if b < p.VPerNode*n || e > p.VPerNode*(n+1) {
				t.Fatalf("range [%d,%d) leaves node %d", b, e, n)
			}
			for v := b; v < e; v++ {
				seen[v]++
			}
		}
	}
	for v, c := range seen {
		if c != 1 {
			t.Fatalf("vertex %d covered %d times", v, c)
		}
	}
	if b, e := graph.NewPartition(100, 1, 1, 5).Range(0, 0); b != 0 || e != 5 {
		t.Fatalf("threshold range [%d,%d)", b, e)
	}
}

func TestPageRankTwoVertexFixedPoint(t *testing.T) {
	g, _ := graph.FromEdges(2, []graph.Edge{{0, 1}})
	topo := api.Topology{Nodes: 2, ThreadsPerNode: 1, Cores: 1}
	a := pool.NewAllocator()
	defer a.Close()
	pr, err := graph.NewPageRank(a, topo, g, graph.PageRankConfig{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, topo, func(w *concurrency.Worker) {
		for i := uint64(0); i < 20; i++ {
			pr.Iterate(w.Rank, i)
		}
	})
	want, err := graph.PageRankFixedPoint(g, graph.DefaultDamping)
	if err != nil {
		t.Fatal(err)
	}
	got := pr.Weights()
	for v := range got {
		if math.Abs(got[v]-want[v]) > 1e-9 {
			t.Fatalf("vertex %d weight %v, want %v", v, got[v], want[v])
		}
	}
	if math.Abs(want[0]-0.85) > 1e-12 || math.Abs(want[1]-0.9775) > 1e-12 {
		t.Fatalf("closed form %v", want)
	}
}

func TestPageRankMatchesReference(t *testing.T) {
	g, _ := graph.Random(64, 3, 42)
	topo := api.Topology{Nodes: 2, ThreadsPerNode: 2, Cores: 2}
	a := pool.NewAllocator()
	defer a.Close()
	pr, err := graph.NewPageRank(a, topo, g, graph.PageRankConfig{})
	if err != nil {
		t.Fatal(err)
	}
	run(t, topo, func(w *concurrency.Worker) {
		for i := uint64(0); i < 200; i++ {
			pr.Iterate(w.Rank, i)
		}
	})
	want, _ := graph.PageRankFixedPoint(g, graph.DefaultDamping)
	for v, got := range pr.Weights() {
		if math.Abs(got-want[v]) > 1e-6 {
			t.Fatalf("vertex %d weight %v, want %v", v, got, want[v])
		}
	}
}

func TestPageRankRejectsEdgeless(t *testing.T) {
	g, _ := graph.FromEdges(3, nil)
	_, err := graph.NewPageRank(pool.NewAllocator(pool.WithHeap()), api.Topology{Nodes: 1, ThreadsPerNode: 1, Cores: 1}, g, graph.PageRankConfig{})
	if api.CodeOf(err) != api.ErrCodeConfig {
		t.Fatalf("got %v", err)
	}
}

func TestSSSPRelaxMatchesBFS(t *testing.T) {
	g, _ := graph.Grid(8, 6)
	topo := api.Topology{Nodes: 3, ThreadsPerNode: 2, Cores: 2}
	a := pool.NewAllocator()
	defer a.Close()
	s, err := graph.NewSSSP(a, topo, g, graph.SSSPConfig{BatchSize: 4, VPerLock: 3, Mode: graph.ModeRelax})
	if err != nil {
		t.Fatal(err)
	}
	run(t, topo, func(w *concurrency.Worker) {
		for r := 0; r < g.NumV(); r++ {
			w.Rendezvous()
			s.Round(w.Rank)
		}
	})
	if got, want := s.Dists(), graph.BFS(g, 0); !slices.Equal(got, want) {
		t.Fatalf("dists %v, want %v", got, want)
	}
	if s.LocksAcquired() == 0 {
		t.Fatal("no bucket locks taken")
	}
}

func TestSSSPCompatOverwrites(t *testing.T) {
	g, _ := graph.Ring(4)
	topo := api.Topology{Nodes: 1, ThreadsPerNode: 1, Cores: 1}
	a := pool.NewAllocator()
	defer a.Close()
	s, err := graph.NewSSSP(a, topo, g, graph.SSSPConfig{BatchSize: 1, VPerLock: 2, Mode: graph.ModeCompat})
	if err != nil {
		t.Fatal(err)
	}
	s.Round(api.Rank{})
	// The back edge 3 -> 0 overwrites the source.
	if got := s.Dists(); !slices.Equal(got, []uint64{4, 1, 2, 3}) {
		t.Fatalf("compat dists %v", got)
	}
}

func TestSSSPInfinitySaturates(t *testing.T) {
	g, _ := graph.FromEdges(3, []graph.Edge{{1, 2}})
	s, err := graph.NewSSSP(pool.NewAllocator(pool.WithHeap()), api.Topology{Nodes: 1, ThreadsPerNode: 1, Cores: 1}, g,
		graph.SSSPConfig{BatchSize: 2, VPerLock: 1, Mode: graph.ModeCompat})
	if err != nil {
		t.Fatal(err)
	}
	s.Round(api.Rank{})
	if s.Dist(2) != graph.Infinity {
		t.Fatalf("unreached vertex got %d", s.Dist(2))
	}
}

func TestParseSSSPMode(t *testing.T) {
	if m, err := graph.ParseSSSPMode("RELAX"); err != nil || m != graph.ModeRelax {
		t.Fatalf("got %v %v", m, err)
	}
	if _, err := graph.ParseSSSPMode("dijkstra"); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestPageRankIterationsConverge(t *testing.T) {
	g, _ := graph.Grid(4, 4)
	want, err := graph.PageRankFixedPoint(g, 0.85)
	if err != nil {
		t.Fatal(err)
	}
	got := graph.PageRankIterations(g, 0.85, 100)
	for v := range got {
		if math.Abs(got[v]-want[v]) > 1e-9 {
			t.Fatalf("vertex %d: %v vs %v", v, got[v], want[v])
		}
	}
}
