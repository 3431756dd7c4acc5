// File: graph/partition.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package graph

// Partition splits vertices contiguously across nodes and, inside a node,
// across threads.
type Partition struct {
	NumV       int
	Nodes      int
	Threads    int
	VPerNode   int
	VPerThread int
	// Threshold caps the vertices a thread processes per round; 0 is no cap.
	Threshold int
}

// NewPartition computes per-node and per-thread spans.
func NewPartition(numV, nodes, threads, threshold int) Partition {
	vn := (numV + nodes - 1) / nodes
	return Partition{
		NumV:       numV,
		Nodes:      nodes,
		Threads:    threads,
		VPerNode:   vn,
		VPerThread: (vn + threads - 1) / threads,
		Threshold:  threshold,
	}
}

// Range returns the half-open vertex range processed by (node, thread).
// It never crosses into the next node and may be empty.
func (p Partition) Range(node, thread int) (begin, end int) {
	begin = p.VPerNode*node + p.VPerThread*thread
	end = min(begin+p.VPerThread, p.VPerNode*(node+1), p.NumV)
	if p.Threshold > 0 {
		end = min(end, begin+p.Threshold)
	}
	if begin > end {
		begin = end
	}
	return begin, end
}

// Owner returns the node holding v and v's offset in that node's state.
func (p Partition) Owner(v int) (node, offset int) {
	return v / p.VPerNode, v % p.VPerNode
}
