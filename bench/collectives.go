// File: bench/collectives.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Collective benchmarks. Each runs one collective instance per thread
// index ("lane"); the payload is split evenly across lanes and lane t
// holds global words [t*lane, (t+1)*lane).

package bench

import (
	"strconv"

	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
)

type laneSet struct {
	opts  *control.Options
	lane  int
	total int // warm-up plus measured rounds
}

func (l *laneSet) init(o *control.Options) {
	l.opts = o
	l.lane = o.LaneElements()
	l.total = o.Warmup + o.Rounds
}

func (l *laneSet) config() collective.Config {
	return collective.Config{Nodes: l.opts.Nodes, Elements: l.lane, Stride: l.opts.Stride, Root: l.opts.Root}
}

// word returns the global index of word k of lane t.
func (l *laneSet) word(t, k int) int { return t*l.lane + k }

func sumStats(parts []collective.Stats) collective.Stats {
	var s collective.Stats
	for i, p := range parts {
		if i == 0 || p.Rounds < s.Rounds {
			s.Rounds = p.Rounds
		}
		s.Stages += p.Stages
	}
	return s
}

// barrierBench runs the hierarchical barrier with tokens r.
type barrierBench struct {
	laneSet
	b *collective.Barrier
}

func (b *barrierBench) Name() string { return control.BenchBarrier }

func (b *barrierBench) Setup(env *Env) error {
	b.init(env.Opts)
	var err error
	if b.b, err = collective.NewBarrier(env.Alloc, env.Opts.Topology()); err != nil {
		return err
	}
	env.Log.Debug().Msg("allocated barrier doorbells")
	env.probe("barrier", b.b)
	return nil
}

func (b *barrierBench) Round(w *concurrency.Worker, r uint64) { b.b.Wait(w.Rank, r) }

func (b *barrierBench) Verify() error {
	if got := b.b.Stats().Rounds; got != uint64(b.total) {
		return mismatch("barrier", "rounds", 0, float64(got), float64(b.total))
	}
	return nil
}

func (b *barrierBench) Stats() collective.Stats { return b.b.Stats() }

// allReduceBench fills node n's word j with (j+1)*(n+1).
type allReduceBench struct {
	laneSet
	inst []*collective.RingAllReduce
}

func (b *allReduceBench) Name() string { return control.BenchAllReduce }

func (b *allReduceBench) Setup(env *Env) error {
	b.init(env.Opts)
	b.inst = make([]*collective.RingAllReduce, env.Opts.Threads)
	for t := range b.inst {
		ar, err := collective.NewRingAllReduce(env.Alloc, b.config())
		if err != nil {
			return err
		}
		b.inst[t] = ar
		env.probe("allreduce.lane"+itoa(t), ar)
		if !env.Opts.Verify {
			continue
		}
		for n := 0; n < env.Opts.Nodes; n++ {
			in := ar.Input(n)
			for k := range in {
				in[k] = float64(b.word(t, k)+1) * float64(n+1)
			}
		}
	}
	return nil
}

func (b *allReduceBench) Round(w *concurrency.Worker, r uint64) {
	b.inst[w.Thread].Run(w.Node, r, b.opts.Verify)
}

// Verify replays the rounds sequentially: every round replaces each
// node's word with the sum over nodes.
func (b *allReduceBench) Verify() error {
	nodes := b.opts.Nodes
	vals := make([]float64, nodes)
	for t, ar := range b.inst {
		for k := 0; k < b.lane; k++ {
			j := b.word(t, k)
			for n := range vals {
				vals[n] = float64(j+1) * float64(n+1)
			}
			for i := 0; i < b.total; i++ {
				sum := 0.0
				for _, v := range vals {
					sum += v
				}
				for n := range vals {
					vals[n] = sum
				}
			}
			for n := 0; n < nodes; n++ {
				if got := ar.Input(n)[k]; !near(got, vals[n]) {
					return mismatch("allreduce", "node "+itoa(n), j, got, vals[n])
				}
			}
		}
	}
	return nil
}

func (b *allReduceBench) Stats() collective.Stats {
	parts := make([]collective.Stats, len(b.inst))
	for i, ar := range b.inst {
		parts[i] = ar.Stats()
	}
	return sumStats(parts)
}

// reduceBench fills every node's word j with j+1; after one round the
// root holds (j+1)*nodes.
type reduceBench struct {
	laneSet
	inst []*collective.TreeReduce
}

func (b *reduceBench) Name() string { return control.BenchReduce }

func (b *reduceBench) Setup(env *Env) error {
	b.init(env.Opts)
	b.inst = make([]*collective.TreeReduce, env.Opts.Threads)
	for t := range b.inst {
		tr, err := collective.NewTreeReduce(env.Alloc, b.config())
		if err != nil {
			return err
		}
		b.inst[t] = tr
		env.probe("reduce.lane"+itoa(t), tr)
		if !env.Opts.Verify {
			continue
		}
		for n := 0; n < env.Opts.Nodes; n++ {
			in := tr.Input(n)
			for k := range in {
				in[k] = float64(b.word(t, k) + 1)
			}
		}
	}
	return nil
}

func (b *reduceBench) Round(w *concurrency.Worker, r uint64) {
	b.inst[w.Thread].Run(w.Node, r, b.opts.Verify)
}

// Verify replays the tree bottom-up for every round: inner nodes keep
// their subtree sums, so later rounds compound.
func (b *reduceBench) Verify() error {
	nodes := b.opts.Nodes
	vals := make([]float64, nodes)
	for t, tr := range b.inst {
		for k := 0; k < b.lane; k++ {
			j := b.word(t, k)
			for n := range vals {
				vals[n] = float64(j + 1)
			}
			for i := 0; i < b.total; i++ {
				for n := nodes - 1; n > 0; n-- {
					vals[(n-1)/2] += vals[n]
				}
			}
			for n := 0; n < nodes; n++ {
				if got := tr.Input(n)[k]; !near(got, vals[n]) {
					return mismatch("reduce", "node "+itoa(n), j, got, vals[n])
				}
			}
		}
	}
	return nil
}

func (b *reduceBench) Stats() collective.Stats {
	parts := make([]collective.Stats, len(b.inst))
	for i, tr := range b.inst {
		parts[i] = tr.Stats()
	}
	return sumStats(parts)
}

// scatterBench fills the root's segment i word j with i*1000 + j + 1.
type scatterBench struct {
	laneSet
	inst []*collective.Scatter
}

func (b *scatterBench) Name() string { return control.BenchScatter }

func scatterValue(node, j int) float64 { return float64(node*1000 + j + 1) }

func (b *scatterBench) Setup(env *Env) error {
	b.init(env.Opts)
	b.inst = make([]*collective.Scatter, env.Opts.Threads)
	for t := range b.inst {
		s, err := collective.NewScatter(env.Alloc, b.config())
		if err != nil {
			return err
		}
		b.inst[t] = s
		env.probe("scatter.lane"+itoa(t), s)
		if !env.Opts.Verify {
			continue
		}
		in := s.Input()
		for i := 0; i < env.Opts.Nodes; i++ {
			for k := 0; k < b.lane; k++ {
				in[i*b.lane+k] = scatterValue(i, b.word(t, k))
			}
		}
	}
	return nil
}

func (b *scatterBench) Round(w *concurrency.Worker, r uint64) {
	b.inst[w.Thread].Run(w.Node, r, b.opts.Verify)
}

func (b *scatterBench) Verify() error {
	if b.total == 0 {
		return nil
	}
	for t, s := range b.inst {
		for n := 0; n < b.opts.Nodes; n++ {
			for k, got := range s.Recv(n) {
				if want := scatterValue(n, b.word(t, k)); got != want {
					return mismatch("scatter", "node "+itoa(n), b.word(t, k), got, want)
				}
			}
		}
	}
	return nil
}

func (b *scatterBench) Stats() collective.Stats {
	parts := make([]collective.Stats, len(b.inst))
	for i, s := range b.inst {
		parts[i] = s.Stats()
	}
	return sumStats(parts)
}

// gatherBench fills every node's word j with 1.0*(j+1).
type gatherBench struct {
	laneSet
	inst []*collective.Gather
}

func (b *gatherBench) Name() string { return control.BenchGather }

func (b *gatherBench) Setup(env *Env) error {
	b.init(env.Opts)
	b.inst = make([]*collective.Gather, env.Opts.Threads)
	for t := range b.inst {
		g, err := collective.NewGather(env.Alloc, b.config())
		if err != nil {
			return err
		}
		b.inst[t] = g
		env.probe("gather.lane"+itoa(t), g)
		if !env.Opts.Verify {
			continue
		}
		for n := 0; n < env.Opts.Nodes; n++ {
			in := g.Input(n)
			for k := range in {
				in[k] = 1.0 * float64(b.word(t, k)+1)
			}
		}
	}
	return nil
}

func (b *gatherBench) Round(w *concurrency.Worker, r uint64) {
	b.inst[w.Thread].Run(w.Node, r, b.opts.Verify)
}

func (b *gatherBench) Verify() error {
	if b.total == 0 {
		return nil
	}
	for t, g := range b.inst {
		recv := g.Recv()
		for n := 0; n < b.opts.Nodes; n++ {
			for k := 0; k < b.lane; k++ {
				want := float64(b.word(t, k) + 1)
				if got := recv[n*b.lane+k]; got != want {
					return mismatch("gather", "segment "+itoa(n), b.word(t, k), got, want)
				}
			}
		}
	}
	return nil
}

func (b *gatherBench) Stats() collective.Stats {
	parts := make([]collective.Stats, len(b.inst))
	for i, g := range b.inst {
		parts[i] = g.Stats()
	}
	return sumStats(parts)
}

// allToAllBench fills node n's word j with n*1000 + j + 1.
type allToAllBench struct {
	laneSet
	inst []*collective.AllToAll
}

func (b *allToAllBench) Name() string { return control.BenchAllToAll }

func (b *allToAllBench) Setup(env *Env) error {
	b.init(env.Opts)
	b.inst = make([]*collective.AllToAll, env.Opts.Threads)
	for t := range b.inst {
		x, err := collective.NewAllToAll(env.Alloc, b.config())
		if err != nil {
			return err
		}
		b.inst[t] = x
		env.probe("alltoall.lane"+itoa(t), x)
		if !env.Opts.Verify {
			continue
		}
		for n := 0; n < env.Opts.Nodes; n++ {
			in := x.Input(n)
			for k := range in {
				in[k] = scatterValue(n, b.word(t, k))
			}
		}
	}
	return nil
}

func (b *allToAllBench) Round(w *concurrency.Worker, r uint64) {
	b.inst[w.Thread].Run(w.Node, r, b.opts.Verify)
}

func (b *allToAllBench) Verify() error {
	if b.total == 0 {
		return nil
	}
	nodes := b.opts.Nodes
	for _, x := range b.inst {
		for recv := 0; recv < nodes; recv++ {
			for send := 0; send < nodes; send++ {
				if send == recv {
					continue
				}
				sent := x.Input(send)
				got := x.Recv(recv)[send*b.lane : (send+1)*b.lane]
				for k := range sent {
					if got[k] != sent[k] {
						return mismatch("alltoall", "pair "+itoa(send)+"->"+itoa(recv), k, got[k], sent[k])
					}
				}
			}
		}
	}
	return nil
}

func (b *allToAllBench) Stats() collective.Stats {
	parts := make([]collective.Stats, len(b.inst))
	for i, x := range b.inst {
		parts[i] = x.Stats()
	}
	return sumStats(parts)
}

func itoa(i int) string { return strconv.Itoa(i) }
