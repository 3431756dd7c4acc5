// control/options.go
// Author: momentics <momentics@gmail.com>
//
// Resolved benchmark options, flag binding and fail-fast validation.

package control

import (
	"flag"
	"time"

	"github.com/momentics/hioload-coll/api"
)

// Benchmark names accepted by Validate.
const (
	BenchSendRecv  = "sendrecv"
	BenchBarrier   = "barrier"
	BenchAllReduce = "allreduce"
	BenchReduce    = "reduce"
	BenchScatter   = "scatter"
	BenchGather    = "gather"
	BenchAllToAll  = "alltoall"
	BenchTQH       = "tqh"
	BenchPageRank  = "pagerank"
	BenchSSSP      = "sssp"
	BenchPad       = "pad"
	BenchTrns      = "trns"
	BenchHsti      = "hsti"
)

// Benches lists every benchmark in CLI order.
var Benches = []string{
	BenchSendRecv, BenchBarrier, BenchAllReduce, BenchReduce, BenchScatter,
	BenchGather, BenchAllToAll, BenchTQH, BenchPageRank, BenchSSSP,
	BenchPad, BenchTrns, BenchHsti,
}

// Options is the resolved configuration of one benchmark run.
type Options struct {
	Bench string

	Nodes   int
	Threads int
	Cores   int
	Rounds  int
	Warmup  int

	Elements int
	Stride   int
	Verify   bool
	Root     int
	Pad      int

	Capacity        int
	Bins            int
	FrameSize       int
	ThreadsPerFrame int
	Frames          int

	Cols     int
	PadWidth int

	Graph       string
	GraphSize   int
	GraphDegree int
	Seed        uint64
	Source      int
	Damping     float64
	BatchSize   int
	VPerLock    int
	Threshold   int
	SSSPMode    string

	Pin        bool
	Heap       bool
	JSON       bool
	LogLevel   string
	HangReport time.Duration
}

// DefaultOptions mirrors the benchmarks' built-in defaults.
func DefaultOptions() *Options {
	return &Options{
		Nodes:           4,
		Threads:         1,
		Cores:           1,
		Rounds:          1,
		Elements:        16,
		Stride:          1,
		Capacity:        320,
		Bins:            256,
		FrameSize:       100,
		ThreadsPerFrame: 32,
		Frames:          32,
		PadWidth:        1,
		Graph:           "random",
		GraphSize:       1024,
		GraphDegree:     8,
		Seed:            1,
		Damping:         0.85,
		BatchSize:       32,
		VPerLock:        128,
		Threshold:       0,
		SSSPMode:        "compat",
		LogLevel:        "info",
	}
}

// RegisterFlags binds every option to fs.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&o.Nodes, "n", o.Nodes, "number of nodes")
	fs.IntVar(&o.Threads, "t", o.Threads, "threads per node")
	fs.IntVar(&o.Cores, "c", o.Cores, "logical cores per node (>= threads)")
	fs.IntVar(&o.Rounds, "r", o.Rounds, "measured rounds")
	fs.IntVar(&o.Warmup, "w", o.Warmup, "warm-up rounds")
	fs.IntVar(&o.Elements, "e", o.Elements, "payload size in float64 words")
	fs.IntVar(&o.Stride, "s", o.Stride, "copy stride in words")
	fs.BoolVar(&o.Verify, "v", o.Verify, "fill known patterns and verify results")
	fs.IntVar(&o.Root, "root", o.Root, "root node of rooted collectives")
	fs.IntVar(&o.Pad, "pad", o.Pad, "padded send repetitions (sendrecv)")
	fs.IntVar(&o.Capacity, "q", o.Capacity, "task queue capacity (tqh)")
	fs.IntVar(&o.Bins, "bins", o.Bins, "histogram bins (tqh, hsti)")
	fs.IntVar(&o.FrameSize, "frame", o.FrameSize, "frame size in items (tqh, hsti)")
	fs.IntVar(&o.ThreadsPerFrame, "tpf", o.ThreadsPerFrame, "threads per frame (tqh, hsti)")
	fs.IntVar(&o.Frames, "frames", o.Frames, "frames in the pool (tqh, hsti)")
	fs.IntVar(&o.Cols, "cols", o.Cols, "matrix columns, 0 for 1023 (pad) or 8 (trns)")
	fs.IntVar(&o.PadWidth, "pw", o.PadWidth, "padding columns appended to each row (pad)")
	fs.StringVar(&o.Graph, "graph", o.Graph, "graph generator: ring, grid or random")
	fs.IntVar(&o.GraphSize, "gv", o.GraphSize, "graph vertices (grid side for grid)")
	fs.IntVar(&o.GraphDegree, "gd", o.GraphDegree, "out-degree of random graphs")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "random graph seed")
	fs.IntVar(&o.Source, "src", o.Source, "sssp source vertex")
	fs.Float64Var(&o.Damping, "d", o.Damping, "pagerank damping")
	fs.IntVar(&o.BatchSize, "b", o.BatchSize, "sssp batch size")
	fs.IntVar(&o.VPerLock, "l", o.VPerLock, "sssp vertices per lock")
	fs.IntVar(&o.Threshold, "u", o.Threshold, "vertices per thread per round, 0 for all (required by -v)")
	fs.StringVar(&o.SSSPMode, "mode", o.SSSPMode, "sssp update rule: compat or relax")
	fs.BoolVar(&o.Pin, "pin", o.Pin, "pin workers to cpus")
	fs.BoolVar(&o.Heap, "heap", o.Heap, "allocate regions from the Go heap instead of mmap")
	fs.BoolVar(&o.JSON, "json", o.JSON, "print the report as JSON")
	fs.StringVar(&o.LogLevel, "log", o.LogLevel, "log level")
	fs.DurationVar(&o.HangReport, "hang-report", o.HangReport, "dump doorbells if a run exceeds this, 0 disables")
}

// Topology returns the worker topology.
func (o *Options) Topology() api.Topology {
	return api.Topology{Nodes: o.Nodes, ThreadsPerNode: o.Threads, Cores: o.Cores}
}

// Columns returns the matrix width of the pad and trns kernels.
func (o *Options) Columns() int {
	if o.Cols > 0 {
		return o.Cols
	}
	if o.Bench == BenchPad {
		return 1023
	}
	return 8
}

// exactUnderStride reports whether the bench verifies strided runs.
func (o *Options) exactUnderStride() bool {
	switch o.Bench {
	case BenchPad, BenchTrns, BenchHsti:
		return true
	}
	return false
}

// LaneElements returns the per-lane payload.
func (o *Options) LaneElements() int { return o.Elements / o.Threads }

func cfgErr(msg, key string, v any) error {
	return api.NewError(api.ErrCodeConfig, msg).WithContext(key, v)
}

// Validate checks o for o.Bench. It runs before any worker is spawned.
func (o *Options) Validate() error {
	if err := o.Topology().Validate(); err != nil {
		return err
	}
	switch {
	case o.Rounds < 0 || o.Warmup < 0:
		return cfgErr("round counts must not be negative", "rounds", o.Rounds)
	case o.Stride < 1:
		return cfgErr("stride must be positive", "stride", o.Stride)
	case o.Elements < 1:
		return cfgErr("payload must not be empty", "elements", o.Elements)
	case o.Verify && o.Stride != 1 && !o.exactUnderStride():
		return cfgErr("verification needs stride 1", "stride", o.Stride)
	}

	switch o.Bench {
	case BenchBarrier:
		return nil
	case BenchSendRecv:
		if o.Nodes < 2 {
			return cfgErr("sendrecv needs a peer", "nodes", o.Nodes)
		}
		if o.Pad < 0 {
			return cfgErr("pad must not be negative", "pad", o.Pad)
		}
		return nil
	case BenchAllReduce, BenchReduce, BenchScatter, BenchGather, BenchAllToAll:
		return o.validateCollective()
	case BenchTQH:
		if o.Nodes < 2 {
			return cfgErr("tqh needs worker nodes", "nodes", o.Nodes)
		}
		if o.Capacity < 2 {
			return cfgErr("queue capacity must be at least 2", "capacity", o.Capacity)
		}
		return o.validateFrames()
	case BenchHsti:
		return o.validateFrames()
	case BenchPad:
		if o.Cols < 0 || o.PadWidth < 0 {
			return cfgErr("matrix shape must not be negative", "pad_width", o.PadWidth)
		}
		return nil
	case BenchTrns:
		if o.Cols < 0 {
			return cfgErr("matrix shape must not be negative", "cols", o.Cols)
		}
		return nil
	case BenchPageRank, BenchSSSP:
		return o.validateGraph()
	}
	return cfgErr("unknown benchmark", "bench", o.Bench)
}

func (o *Options) validateCollective() error {
	if o.Elements%o.Threads != 0 {
		return api.NewError(api.ErrCodeAlignment, "payload not divisible by lanes").
			WithContext("elements", o.Elements).WithContext("threads", o.Threads)
	}
	if o.Root < 0 || o.Root >= o.Nodes {
		return cfgErr("root out of range", "root", o.Root)
	}
	switch o.Bench {
	case BenchAllReduce:
		if o.LaneElements()%o.Nodes != 0 {
			return api.NewError(api.ErrCodeAlignment, "lane payload not divisible by nodes").
				WithContext("lane", o.LaneElements()).WithContext("nodes", o.Nodes)
		}
	case BenchReduce:
		if o.Root != 0 {
			return cfgErr("tree reduce is rooted at 0", "root", o.Root)
		}
	case BenchAllToAll:
		if o.Nodes > 64 {
			return cfgErr("all-to-all supports at most 64 nodes", "nodes", o.Nodes)
		}
	}
	return nil
}

func (o *Options) validateFrames() error {
	switch {
	case o.Bins < 1:
		return cfgErr("bins must be positive", "bins", o.Bins)
	case o.ThreadsPerFrame < 1 || o.FrameSize < o.ThreadsPerFrame:
		return cfgErr("frame must hold one item per thread", "frame", o.FrameSize)
	case o.Frames < 1:
		return cfgErr("frame pool must not be empty", "frames", o.Frames)
	}
	return nil
}

func (o *Options) validateGraph() error {
	switch {
	case o.GraphSize < 2:
		return cfgErr("graph needs at least two vertices", "gv", o.GraphSize)
	case o.Graph != "ring" && o.Graph != "grid" && o.Graph != "random":
		return cfgErr("unknown graph generator", "graph", o.Graph)
	case o.Threshold < 0:
		return cfgErr("update threshold must not be negative", "threshold", o.Threshold)
	case o.Verify && o.Threshold != 0:
		return cfgErr("verification needs every vertex processed (-u 0)", "threshold", o.Threshold)
	}
	if o.Bench == BenchPageRank {
		if o.Damping <= 0 || o.Damping > 1 {
			return cfgErr("damping out of range", "damping", o.Damping)
		}
		return nil
	}
	switch {
	case o.BatchSize < 1:
		return cfgErr("batch size must be positive", "batch", o.BatchSize)
	case o.VPerLock < 1:
		return cfgErr("vertices per lock must be positive", "v_per_lock", o.VPerLock)
	case o.SSSPMode != "compat" && o.SSSPMode != "relax":
		return cfgErr("unknown sssp mode", "mode", o.SSSPMode)
	case o.Verify && o.SSSPMode != "relax":
		return cfgErr("only relax mode computes shortest paths", "mode", o.SSSPMode)
	case o.Source < 0:
		return cfgErr("source out of range", "source", o.Source)
	}
	return nil
}

// Map flattens o for the config store and the report.
func (o *Options) Map() map[string]any {
	m := map[string]any{
		"bench":    o.Bench,
		"nodes":    o.Nodes,
		"threads":  o.Threads,
		"cores":    o.Cores,
		"rounds":   o.Rounds,
		"warmup":   o.Warmup,
		"elements": o.Elements,
		"stride":   o.Stride,
		"verify":   o.Verify,
		"pin":      o.Pin,
	}
	switch o.Bench {
	case BenchSendRecv:
		m["pad"] = o.Pad
	case BenchScatter, BenchGather, BenchReduce:
		m["root"] = o.Root
	case BenchTQH, BenchHsti:
		if o.Bench == BenchTQH {
			m["capacity"] = o.Capacity
		}
		m["bins"] = o.Bins
		m["frame_size"] = o.FrameSize
		m["threads_per_frame"] = o.ThreadsPerFrame
		m["frames"] = o.Frames
	case BenchPad:
		m["cols"] = o.Columns()
		m["pad_width"] = o.PadWidth
	case BenchTrns:
		m["cols"] = o.Columns()
	case BenchPageRank, BenchSSSP:
		m["graph"] = o.Graph
		m["graph_size"] = o.GraphSize
		m["graph_degree"] = o.GraphDegree
		m["seed"] = o.Seed
		m["threshold"] = o.Threshold
		if o.Bench == BenchPageRank {
			m["damping"] = o.Damping
		} else {
			m["source"] = o.Source
			m["batch_size"] = o.BatchSize
			m["v_per_lock"] = o.VPerLock
			m["sssp_mode"] = o.SSSPMode
		}
	}
	return m
}
