package collective_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// runNodes runs fn once per node on a single-thread fabric for rounds
// rounds and fails the test if the collective does not finish in time.
func runNodes(t *testing.T, nodes int, rounds uint64, fn func(node int, round uint64)) {
	t.Helper()
	f, err := concurrency.NewFabric(api.Topology{Nodes: nodes, ThreadsPerNode: 1, Cores: 1})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		done <- f.Run(context.Background(), func(w *concurrency.Worker) error {
			for r := uint64(1); r <= rounds; r++ {
				fn(w.Node, r)
			}
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("collective did not complete")
	}
}

func newAlloc(t *testing.T) *pool.Allocator {
	a := pool.NewAllocator()
	t.Cleanup(a.Close)
	return a
}

func TestSendStrideAndSynthetic(t *testing.T) {
	a := newAlloc(t)
	bank, err := doorbell.NewBank(a, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	bell := &bank[0]
	dst := make([]float64, 8)
	src := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	collective.Send(api.RealPayload(src), dst, bell, 7, 2)
	want := []float64{1, 0, 3, 0, 5, 0, 7, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("strided copy %v, want %v", dst, want)
		}
	}
	if bell.Load() != 7 {
		t.Fatalf("doorbell %d, want 7", bell.Load())
	}
	collective.Send(api.Synthetic(), dst, bell, 8, 1)
	for i := range dst {
		if dst[i] != float64(i) {
			t.Fatalf("synthetic word %d = %v", i, dst[i])
		}
	}
}

func TestBarrierSeparatesRounds(t *testing.T) {
	topo := api.Topology{Nodes: 3, ThreadsPerNode: 2, Cores: 2}
	a := newAlloc(t)
	b, err := collective.NewBarrier(a, topo)
	if err != nil {
		t.Fatal(err)
	}
	f, err := concurrency.NewFabric(topo)
	if err != nil {
		t.Fatal(err)
	}
	const rounds = 50
	var arrivals [rounds + 1]atomic.Int64
	var early atomic.Int64
	err = f.Run(context.Background(), func(w *concurrency.Worker) error {
		for r := uint64(1); r <= rounds; r++ {
			arrivals[r].Add(1)
			b.Wait(w.Rank, 2*r-1)
			if arrivals[r].Load() != int64(topo.Participants()) {
				early.Add(1)
			}
			b.Wait(w.Rank, 2*r)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := early.Load(); n != 0 {
		t.Fatalf("%d participants left the barrier early", n)
	}
	if s := b.Stats(); s.Rounds != 2*rounds {
		t.Fatalf("rounds %d, want %d", s.Rounds, 2*rounds)
	}
}

func TestChainSyncWaitsForSuccessor(t *testing.T) {
	topo := api.Topology{Nodes: 4, ThreadsPerNode: 2, Cores: 2}
	a := newAlloc(t)
	c, err := collective.NewChainSync(a, topo)
	if err != nil {
		t.Fatal(err)
	}
	f, err := concurrency.NewFabric(topo)
	if err != nil {
		t.Fatal(err)
	}
	const rounds = 40
	var arrived [4][rounds + 1]atomic.Int64
	var early atomic.Int64
	err = f.Run(context.Background(), func(w *concurrency.Worker) error {
		for r := uint64(1); r <= rounds; r++ {
			arrived[w.Node][r].Add(1)
			c.Wait(w.Rank, r)
			if arrived[w.Node][r].Load() != 2 {
				early.Add(1)
			}
			if next := w.Node + 1; next < topo.Nodes && arrived[next][r].Load() != 2 {
				early.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := early.Load(); n != 0 {
		t.Fatalf("%d threads passed before their node or its successor arrived", n)
	}
	if s := c.Stats(); s.Rounds != rounds {
		t.Fatalf("rounds %d, want %d", s.Rounds, rounds)
	}
}

func TestChainSyncLocalRunsLeaderAfterFanIn(t *testing.T) {
	topo := api.Topology{Nodes: 2, ThreadsPerNode: 3, Cores: 3}
	a := newAlloc(t)
	c, err := collective.NewChainSync(a, topo)
	if err != nil {
		t.Fatal(err)
	}
	f, err := concurrency.NewFabric(topo)
	if err != nil {
		t.Fatal(err)
	}
	const rounds = 30
	marks := make([][3]uint64, topo.Nodes)
	var bad atomic.Int64
	err = f.Run(context.Background(), func(w *concurrency.Worker) error {
		for r := uint64(1); r <= rounds; r++ {
			marks[w.Node][w.Thread] = r
			c.Local(w.Rank, r, func() {
				for _, m := range marks[w.Node] {
					if m != r {
						bad.Add(1)
					}
				}
			})
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := bad.Load(); n != 0 {
		t.Fatalf("leader saw %d stale thread writes", n)
	}
}

func TestRingAllReduceSums(t *testing.T) {
	const nodes, elems = 4, 8
	a := newAlloc(t)
	ar, err := collective.NewRingAllReduce(a, collective.Config{Nodes: nodes, Elements: elems, Stride: 1})
	if err != nil {
		t.Fatal(err)
	}
	fill := func() {
		for n := 0; n < nodes; n++ {
			in := ar.Input(n)
			for j := range in {
				in[j] = float64(j+1) * float64(n+1)
			}
		}
	}
	fill()
	runNodes(t, nodes, 1, func(node int, r uint64) { ar.Run(node, r, true) })
	for n := 0; n < nodes; n++ {
		for j, v := range ar.Input(n) {
			if want := float64(j+1) * 10; v != want {
				t.Fatalf("node %d word %d = %v, want %v", n, j, v, want)
			}
		}
	}
	// Later rounds reuse slots and doorbells.
	runNodes(t, nodes, 3, func(node int, r uint64) { ar.Run(node, r+1, false) })
	if s := ar.Stats(); s.Rounds != 4 {
		t.Fatalf("rounds %d, want 4", s.Rounds)
	}
}

func TestRingAllReduceRejectsMisaligned(t *testing.T) {
	_, err := collective.NewRingAllReduce(newAlloc(t), collective.Config{Nodes: 3, Elements: 8, Stride: 1})
	if api.CodeOf(err) != api.ErrCodeAlignment {
		t.Fatalf("got %v", err)
	}
}

func TestTreeReduce(t *testing.T) {
	a := newAlloc(t)
	tr, err := collective.NewTreeReduce(a, collective.Config{Nodes: 3, Elements: 1, Stride: 1})
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 3; n++ {
		tr.Input(n)[0] = float64(n + 1)
	}
	runNodes(t, 3, 1, func(node int, r uint64) { tr.Run(node, r, true) })
	if got := tr.Input(0)[0]; got != 6 {
		t.Fatalf("root holds %v, want 6", got)
	}
	runNodes(t, 3, 5, func(node int, r uint64) { tr.Run(node, r+1, false) })

	if _, err := collective.NewTreeReduce(a, collective.Config{Nodes: 3, Elements: 1, Stride: 1, Root: 1}); err == nil {
		t.Fatal("non-zero root accepted")
	}
}

func TestTreeReduceSevenNodes(t *testing.T) {
	const nodes, elems = 7, 4
	tr, err := collective.NewTreeReduce(newAlloc(t), collective.Config{Nodes: nodes, Elements: elems, Stride: 1})
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < nodes; n++ {
		for j := range tr.Input(n) {
			tr.Input(n)[j] = float64(j + 1)
		}
	}
	runNodes(t, nodes, 1, func(node int, r uint64) { tr.Run(node, r, true) })
	for j, v := range tr.Input(0) {
		if want := float64((j + 1) * nodes); v != want {
			t.Fatalf("word %d = %v, want %v", j, v, want)
		}
	}
}

func TestScatter(t *testing.T) {
	const nodes, elems = 4, 3
	s, err := collective.NewScatter(newAlloc(t), collective.Config{Nodes: nodes, Elements: elems, Stride: 1, Root: 2})
	if err != nil {
		t.Fatal(err)
	}
	in := s.Input()
	for i := 0; i < nodes; i++ {
		for j := 0; j < elems; j++ {
			in[i*elems+j] = float64(i*1000 + j + 1)
		}
	}
	runNodes(t, nodes, 3, func(node int, r uint64) { s.Run(node, r, true) })
	for i := 0; i < nodes; i++ {
		for j, v := range s.Recv(i) {
			if want := float64(i*1000 + j + 1); v != want {
				t.Fatalf("node %d word %d = %v, want %v", i, j, v, want)
			}
		}
	}
}

func TestGatherIdentity(t *testing.T) {
	const nodes, elems = 5, 4
	g, err := collective.NewGather(newAlloc(t), collective.Config{Nodes: nodes, Elements: elems, Stride: 1})
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < nodes; n++ {
		for j := range g.Input(n) {
			g.Input(n)[j] = float64(n*100 + j)
		}
	}
	runNodes(t, nodes, 10, func(node int, r uint64) { g.Run(node, r, true) })
	for i, v := range g.Recv() {
		n, j := i/elems, i%elems
		if want := float64(n*100 + j); v != want {
			t.Fatalf("segment %d word %d = %v, want %v", n, j, v, want)
		}
	}
	if s := g.Stats(); s.Rounds != 10 || s.Stages != 10*(nodes-1) {
		t.Fatalf("stats %+v", s)
	}
}

func TestAllToAllPairs(t *testing.T) {
	const nodes, elems = 4, 3
	x, err := collective.NewAllToAll(newAlloc(t), collective.Config{Nodes: nodes, Elements: elems, Stride: 1})
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < nodes; n++ {
		for j := range x.Input(n) {
			x.Input(n)[j] = float64(n*1000 + j + 1)
		}
	}
	runNodes(t, nodes, 4, func(node int, r uint64) { x.Run(node, r, true) })
	for recv := 0; recv < nodes; recv++ {
		for send := 0; send < nodes; send++ {
			if send == recv {
				continue
			}
			for j := 0; j < elems; j++ {
				if got, want := x.Recv(recv)[send*elems+j], x.Input(send)[j]; got != want {
					t.Fatalf("%d from %d word %d = %v, want %v", recv, send, j, got, want)
				}
			}
		}
	}
}

func TestAllToAllNodeLimit(t *testing.T) {
	_, err := collective.NewAllToAll(newAlloc(t), collective.Config{Nodes: collective.MaxAllToAllNodes + 1, Elements: 1, Stride: 1})
	if err == nil {
		t.Fatal("oversized all-to-all accepted")
	}
}

func BenchmarkBarrier(b *testing.B) {
	topo := api.Topology{Nodes: 2, ThreadsPerNode: 2, Cores: 2}
	a := pool.NewAllocator()
	defer a.Close()
	bar, err := collective.NewBarrier(a, topo)
	if err != nil {
		b.Fatal(err)
	}
	f, err := concurrency.NewFabric(topo)
	if err != nil {
		b.Fatal(err)
	}
	rounds := uint64(b.N)
	b.ResetTimer()
	err = f.Run(context.Background(), func(w *concurrency.Worker) error {
		for r := uint64(1); r <= rounds; r++ {
			bar.Wait(w.Rank, r)
		}
		return nil
	})
	if err != nil {
		b.Fatal(err)
	}
}
