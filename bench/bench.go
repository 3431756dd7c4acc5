// File: bench/bench.go
// Package bench drives the collective and graph workloads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every benchmark allocates its regions before workers start, runs
// warm-up then measured rounds on every participant, and optionally
// verifies the result after all workers joined.

package bench

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/pool"
)

// Hooks bracket the measured rounds for an external stats collector.
// Both run on the orchestrator between full rendezvous.
type Hooks struct {
	OnMeasureStart func()
	OnMeasureEnd   func()
}

// Env carries the collaborators a benchmark needs.
type Env struct {
	Opts    *control.Options
	Alloc   *pool.Allocator
	Fabric  *concurrency.Fabric
	Log     zerolog.Logger
	Metrics *control.MetricsRegistry
	Probes  *control.DebugProbes
	Hooks   Hooks
}

// Benchmark is one workload.
type Benchmark interface {
	Name() string
	// Setup allocates and fills every region. It runs before any worker.
	Setup(env *Env) error
	// Round runs 1-based round r for the calling worker.
	Round(w *concurrency.Worker, r uint64)
	// Verify checks results once all workers joined.
	Verify() error
	// Stats reports round and stage counters.
	Stats() collective.Stats
}

// Result summarizes one run.
type Result struct {
	Bench    string
	Rounds   int
	Warmup   int
	Elapsed  time.Duration
	Cycles   uint64
	Stats    collective.Stats
	Verified bool
}

// PerRound returns the mean measured time per round.
func (r *Result) PerRound() time.Duration {
	if r.Rounds == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Rounds)
}

// Run sets b up and drives it to completion on env.Fabric.
func Run(ctx context.Context, b Benchmark, env *Env) (*Result, error) {
	o := env.Opts
	if err := b.Setup(env); err != nil {
		return nil, err
	}
	env.Log.Info().Str("bench", b.Name()).Interface("topology", o.Topology()).Msg("setup complete")

	res := &Result{Bench: b.Name(), Rounds: o.Rounds, Warmup: o.Warmup}
	var clock timer
	start := func(w *concurrency.Worker) {
		w.Rendezvous()
		if w.IsOrchestrator() {
			if env.Hooks.OnMeasureStart != nil {
				env.Hooks.OnMeasureStart()
			}
			clock.start()
		}
	}

	total := o.Warmup + o.Rounds
	err := env.Fabric.Run(ctx, func(w *concurrency.Worker) error {
		for r := 0; r < total; r++ {
			if r == o.Warmup {
				start(w)
			}
			b.Round(w, uint64(r)+1)
		}
		if o.Rounds == 0 {
			start(w)
		}
		w.Rendezvous()
		if w.IsOrchestrator() {
			res.Elapsed, res.Cycles = clock.stop()
			if env.Hooks.OnMeasureEnd != nil {
				env.Hooks.OnMeasureEnd()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats = b.Stats()
	env.record(res)

	if o.Verify {
		if err := b.Verify(); err != nil {
			return res, err
		}
		res.Verified = true
	}
	return res, nil
}

func (env *Env) record(res *Result) {
	if env.Metrics == nil {
		return
	}
	env.Metrics.Add(control.MetricRounds, uint64(res.Rounds))
	env.Metrics.Add(control.MetricWarmup, uint64(res.Warmup))
	env.Metrics.Add(control.MetricStages, res.Stats.Stages)
	env.Metrics.Set(control.MetricCycles, res.Cycles)
	env.Metrics.Set(control.MetricNanos, res.Elapsed.Nanoseconds())
}

func (env *Env) probe(name string, d control.Dumper) {
	if env.Probes != nil {
		env.Probes.RegisterDumper(name, d)
	}
}

// near compares accumulated sums whose rounding depends on the order
// in which the collective added them. Sums that overflowed to the same
// infinity are equal; NaN never matches.
func near(got, want float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return false
	}
	if got == want {
		return true
	}
	return math.Abs(got-want) <= 1e-9*math.Max(1, math.Abs(want))
}

// mismatch builds a verification error.
func mismatch(bench string, what string, index int, got, want float64) error {
	return api.NewError(api.ErrCodeVerification, bench+" result mismatch").
		WithContext("at", what).WithContext("index", index).
		WithContext("got", got).WithContext("want", want)
}

// New returns the benchmark named by o.Bench.
func New(o *control.Options) (Benchmark, error) {
	switch o.Bench {
	case control.BenchSendRecv:
		return &sendRecv{}, nil
	case control.BenchBarrier:
		return &barrierBench{}, nil
	case control.BenchAllReduce:
		return &allReduceBench{}, nil
	case control.BenchReduce:
		return &reduceBench{}, nil
	case control.BenchScatter:
		return &scatterBench{}, nil
	case control.BenchGather:
		return &gatherBench{}, nil
	case control.BenchAllToAll:
		return &allToAllBench{}, nil
	case control.BenchTQH:
		return &tqh{}, nil
	case control.BenchPageRank:
		return &pageRankBench{}, nil
	case control.BenchSSSP:
		return &ssspBench{}, nil
	case control.BenchPad:
		return &padBench{}, nil
	case control.BenchTrns:
		return &trnsBench{}, nil
	case control.BenchHsti:
		return &hsti{}, nil
	}
	return nil, api.NewError(api.ErrCodeConfig, "unknown benchmark").WithContext("bench", o.Bench)
}
