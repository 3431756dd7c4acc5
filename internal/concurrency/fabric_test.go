package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-coll/api"
)

func TestFabricRejectsBadTopology(t *testing.T) {
	_, err := NewFabric(api.Topology{Nodes: 2, ThreadsPerNode: 4, Cores: 2})
	if !errors.Is(err, api.ErrInvalidTopology) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestFabricRunsEveryRankOnce(t *testing.T) {
	topo := api.Topology{Nodes: 3, ThreadsPerNode: 2, Cores: 3}
	f, err := NewFabric(topo)
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	seen := map[api.Rank]int{}
	err = f.Run(context.Background(), func(w *Worker) error {
		mu.Lock()
		seen[w.Rank]++
		mu.Unlock()
		w.Rendezvous()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != topo.Participants() {
		t.Fatalf("%d ranks ran, want %d", len(seen), topo.Participants())
	}
	for r, c := range seen {
		if c != 1 || r.Thread >= topo.ThreadsPerNode {
			t.Errorf("rank %v ran %d times", r, c)
		}
	}
}

func TestFabricPropagatesError(t *testing.T) {
	f, _ := NewFabric(api.Topology{Nodes: 2, ThreadsPerNode: 1, Cores: 1})
	boom := errors.New("boom")
	err := f.Run(context.Background(), func(w *Worker) error {
		if w.Node == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestFabricRecoversPanic(t *testing.T) {
	f, _ := NewFabric(api.Topology{Nodes: 2, ThreadsPerNode: 1, Cores: 1})
	err := f.Run(context.Background(), func(w *Worker) error {
		if w.Node == 1 {
			panic("bad worker")
		}
		return nil
	})
	if err == nil {
		t.Fatal("panic swallowed")
	}
}

func TestSpinBarrierGenerations(t *testing.T) {
	const parties, rounds = 4, 200
	b := NewSpinBarrier(parties)
	var counter atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < parties; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 1; r <= rounds; r++ {
				counter.Add(1)
				b.Await()
				if c := counter.Load(); c < int64(r*parties) {
					t.Errorf("round %d passed with counter %d", r, c)
					return
				}
				b.Await()
			}
		}()
	}
	wg.Wait()
}
