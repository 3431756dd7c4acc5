// File: api/topology.go
// Author: momentics <momentics@gmail.com>
//
// Node/thread topology of the emulated multi-node system.

package api

import "fmt"

// Topology describes num_nodes x threads_per_node logical executors plus
// idle placeholder cores. It is immutable once validated.
type Topology struct {
	Nodes          int
	ThreadsPerNode int
	// Cores is the number of logical cores per node. Cores beyond
	// ThreadsPerNode only join the final rendezvous.
	Cores int
}

// Rank identifies one executor by its stable (node, thread) pair.
type Rank struct {
	Node   int
	Thread int
}

func (r Rank) String() string { return fmt.Sprintf("n[%d]t[%d]", r.Node, r.Thread) }

// IsOrchestrator reports whether r is node 0 thread 0, the caller's own thread.
func (r Rank) IsOrchestrator() bool { return r.Node == 0 && r.Thread == 0 }

// IsLeader reports whether r leads its node.
func (r Rank) IsLeader() bool { return r.Thread == 0 }

// Validate checks the topology and fails fast with a config error.
func (t Topology) Validate() error {
	switch {
	case t.Nodes < 1:
		return NewError(ErrCodeConfig, "node count must be positive").WithContext("nodes", t.Nodes)
	case t.ThreadsPerNode < 1:
		return NewError(ErrCodeConfig, "threads per node must be positive").WithContext("threads", t.ThreadsPerNode)
	case t.Cores < t.ThreadsPerNode:
		return NewError(ErrCodeConfig, "threads per node exceeds core count").
			WithContext("threads", t.ThreadsPerNode).
			WithContext("cores", t.Cores)
	}
	return nil
}

// Participants is the number of working executors (nodes x threads).
func (t Topology) Participants() int { return t.Nodes * t.ThreadsPerNode }

// Idle is the number of placeholder executors across all nodes.
func (t Topology) Idle() int { return t.Nodes * (t.Cores - t.ThreadsPerNode) }

// Index maps a rank onto a flat arena index.
func (t Topology) Index(r Rank) int { return r.Node*t.ThreadsPerNode + r.Thread }

// RankOf is the inverse of Index.
func (t Topology) RankOf(idx int) Rank {
	return Rank{Node: idx / t.ThreadsPerNode, Thread: idx % t.ThreadsPerNode}
}

// CPUOf returns the logical CPU a rank is pinned to: nodes occupy
// consecutive blocks of Cores CPUs.
func (t Topology) CPUOf(r Rank) int { return r.Node*t.Cores + r.Thread }
