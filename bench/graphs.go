// File: bench/graphs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bench

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/graph"
	"github.com/momentics/hioload-coll/internal/concurrency"
)

// BuildGraph generates the graph selected by o.
func BuildGraph(o *control.Options) (*graph.CSR, error) {
	switch o.Graph {
	case "ring":
		return graph.Ring(o.GraphSize)
	case "grid":
		return graph.Grid(o.GraphSize, o.GraphSize)
	case "random":
		return graph.Random(o.GraphSize, o.GraphDegree, o.Seed)
	}
	return nil, api.NewError(api.ErrCodeConfig, "unknown graph generator").WithContext("graph", o.Graph)
}

func loadGraph(env *Env) (*graph.CSR, error) {
	g, err := BuildGraph(env.Opts)
	if err != nil {
		return nil, err
	}
	env.Log.Info().Int("num_v", g.NumV()).Int("num_e", g.NumE()).Msg("node[0] built CSR")
	return g, nil
}

// pageRankBench runs one PageRank iteration per round.
type pageRankBench struct {
	opts *control.Options
	g    *graph.CSR
	pr   *graph.PageRank
}

func (b *pageRankBench) Name() string { return control.BenchPageRank }

func (b *pageRankBench) Setup(env *Env) error {
	b.opts = env.Opts
	var err error
	if b.g, err = loadGraph(env); err != nil {
		return err
	}
	b.pr, err = graph.NewPageRank(env.Alloc, env.Opts.Topology(), b.g, graph.PageRankConfig{
		Damping:   env.Opts.Damping,
		Threshold: env.Opts.Threshold,
		Log:       env.Log,
	})
	if err != nil {
		return err
	}
	env.probe("pagerank.barrier", b.pr.Barrier())
	return nil
}

func (b *pageRankBench) Round(w *concurrency.Worker, r uint64) { b.pr.Iterate(w.Rank, r-1) }

// Verify compares against a sequential replay of the same iterations.
func (b *pageRankBench) Verify() error {
	want := graph.PageRankIterations(b.g, b.opts.Damping, b.opts.Warmup+b.opts.Rounds)
	for v, got := range b.pr.Weights() {
		if !near(got, want[v]) {
			return mismatch("pagerank", "vertex", v, got, want[v])
		}
	}
	return nil
}

// Stats counts barrier rounds; two per iteration.
func (b *pageRankBench) Stats() collective.Stats { return b.pr.Barrier().Stats() }

// ssspBench runs one batched relaxation pass per round. Every round
// starts with a full rendezvous.
type ssspBench struct {
	opts  *control.Options
	g     *graph.CSR
	s     *graph.SSSP
	total int
}

func (b *ssspBench) Name() string { return control.BenchSSSP }

func (b *ssspBench) Setup(env *Env) error {
	o := env.Opts
	b.opts, b.total = o, o.Warmup+o.Rounds
	mode, err := graph.ParseSSSPMode(o.SSSPMode)
	if err != nil {
		return err
	}
	if b.g, err = loadGraph(env); err != nil {
		return err
	}
	if mode == graph.ModeCompat {
		env.Log.Warn().Msg("sssp compat mode overwrites distances unconditionally; results are not shortest paths")
	}
	b.s, err = graph.NewSSSP(env.Alloc, o.Topology(), b.g, graph.SSSPConfig{
		Source:    o.Source,
		BatchSize: o.BatchSize,
		VPerLock:  o.VPerLock,
		Threshold: o.Threshold,
		Mode:      mode,
		Log:       env.Log,
	})
	return err
}

func (b *ssspBench) Round(w *concurrency.Worker, r uint64) {
	w.Rendezvous()
	b.s.Round(w.Rank)
}

// Verify checks relaxed distances against BFS: no distance may drop
// below the true one, and enough rounds must reach it.
func (b *ssspBench) Verify() error {
	want := graph.BFS(b.g, b.opts.Source)
	converged := b.total >= b.g.NumV()
	for v, got := range b.s.Dists() {
		if got < want[v] || (converged && got != want[v]) {
			return mismatch("sssp", "vertex", v, float64(got), float64(want[v]))
		}
	}
	return nil
}

func (b *ssspBench) Stats() collective.Stats {
	return collective.Stats{Rounds: uint64(b.total), Stages: b.s.LocksAcquired()}
}
