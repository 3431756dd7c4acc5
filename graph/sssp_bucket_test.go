package graph

import (
	"testing"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

func TestBucketStaysOnOwningNode(t *testing.T) {
	a := pool.NewAllocator(pool.WithHeap())
	defer a.Close()
	// 10 vertices on 2 nodes with 3 per lock: each node holds 5, so
	// v/3 would put vertices 3, 4 and 5 in one bucket across nodes.
	topo := api.Topology{Nodes: 2, ThreadsPerNode: 1, Cores: 1}
	s, err := NewSSSP(a, topo, Ring(10), SSSPConfig{BatchSize: 2, VPerLock: 3, Mode: ModeRelax})
	if err != nil {
		t.Fatal(err)
	}
	owner := map[int]int{}
	prev := -1
	for v := 0; v < 10; v++ {
		key := s.bucket(v)
		node, _ := s.part.Owner(v)
		if n, ok := owner[key]; ok && n != node {
			t.Fatalf("bucket %d spans nodes %d and %d", key, n, node)
		}
		owner[key] = node
		if key/s.lPerNode != node {
			t.Fatalf("vertex %d: lock %d not on node %d", v, key, node)
		}
		if key < prev {
			t.Fatalf("keys not ascending with vertex id at %d", v)
		}
		prev = key
	}
	if s.bucket(4) == s.bucket(5) {
		t.Fatal("vertices 4 and 5 share a lock across the node boundary")
	}
}
