package bench_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/bench"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/pool"
)

func runBench(t *testing.T, o *control.Options) (*bench.Result, error) {
	t.Helper()
	if err := o.Validate(); err != nil {
		t.Fatalf("options: %v", err)
	}
	f, err := concurrency.NewFabric(o.Topology())
	if err != nil {
		t.Fatal(err)
	}
	b, err := bench.New(o)
	if err != nil {
		t.Fatal(err)
	}
	a := pool.NewAllocator()
	defer a.Close()
	var started, ended int
	env := &bench.Env{
		Opts:    o,
		Alloc:   a,
		Fabric:  f,
		Metrics: control.NewMetricsRegistry(),
		Probes:  control.NewDebugProbes(),
		Hooks: bench.Hooks{
			OnMeasureStart: func() { started++ },
			OnMeasureEnd:   func() { ended++ },
		},
	}
	type outcome struct {
		res *bench.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := bench.Run(context.Background(), b, env)
		done <- outcome{res, err}
	}()
	select {
	case out := <-done:
		if out.err == nil && (started != 1 || ended != 1) {
			t.Fatalf("measure hooks ran %d/%d times", started, ended)
		}
		return out.res, out.err
	case <-time.After(30 * time.Second):
		t.Fatalf("%s did not complete; state %v", o.Bench, env.Probes.DumpState())
	}
	return nil, nil
}

func opts(name string, mutate func(o *control.Options)) *control.Options {
	o := control.DefaultOptions()
	o.Bench = name
	o.Verify = true
	o.Rounds = 3
	o.Warmup = 1
	if mutate != nil {
		mutate(o)
	}
	return o
}

func TestBenchmarksVerify(t *testing.T) {
	cases := []*control.Options{
		opts(control.BenchBarrier, func(o *control.Options) { o.Threads, o.Cores = 2, 3 }),
		opts(control.BenchSendRecv, nil),
		opts(control.BenchSendRecv, func(o *control.Options) { o.Pad = 6 }),
		opts(control.BenchAllReduce, func(o *control.Options) { o.Threads, o.Cores, o.Elements = 2, 2, 16 }),
		opts(control.BenchReduce, func(o *control.Options) { o.Nodes = 5 }),
		opts(control.BenchScatter, func(o *control.Options) { o.Root = 1 }),
		opts(control.BenchGather, func(o *control.Options) { o.Threads, o.Cores, o.Root = 2, 2, 3 }),
		opts(control.BenchAllToAll, func(o *control.Options) { o.Nodes = 3 }),
		opts(control.BenchTQH, func(o *control.Options) { o.Threads, o.Cores, o.Capacity = 2, 2, 2 }),
		opts(control.BenchPageRank, func(o *control.Options) { o.Threshold, o.GraphSize, o.Rounds = 0, 64, 10 }),
		opts(control.BenchSSSP, func(o *control.Options) {
			o.Threshold, o.Graph, o.GraphSize, o.Rounds, o.SSSPMode, o.BatchSize, o.VPerLock = 0, "grid", 5, 25, "relax", 4, 3
		}),
		opts(control.BenchPad, func(o *control.Options) { o.Threads, o.Cores, o.Cols, o.PadWidth = 2, 2, 30, 3 }),
		opts(control.BenchPad, func(o *control.Options) { o.Nodes, o.Stride = 3, 4 }),
		opts(control.BenchTrns, func(o *control.Options) { o.Threads, o.Cores, o.Cols, o.Rounds = 2, 2, 6, 5 }),
		opts(control.BenchTrns, func(o *control.Options) { o.Nodes, o.Stride, o.Cols = 3, 2, 5 }),
		opts(control.BenchHsti, func(o *control.Options) { o.Threads, o.Cores, o.Stride = 2, 2, 3 }),
		opts(control.BenchHsti, func(o *control.Options) { o.Nodes, o.Bins = 1, 7 }),
	}
	for _, o := range cases {
		t.Run(o.Bench, func(t *testing.T) {
			res, err := runBench(t, o)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Verified {
				t.Fatal("result not verified")
			}
			rep := bench.NewReport(res, o.Map(), nil)
			if rep.Line() != o.Bench+" test passed" {
				t.Fatalf("line %q", rep.Line())
			}
		})
	}
}

func TestRunWithoutMeasuredRounds(t *testing.T) {
	res, err := runBench(t, opts(control.BenchGather, func(o *control.Options) { o.Rounds, o.Warmup = 0, 0 }))
	if err != nil {
		t.Fatal(err)
	}
	if res.PerRound() != 0 {
		t.Fatalf("per-round %v", res.PerRound())
	}
}

func TestAllReduceVerifiesAfterOverflow(t *testing.T) {
	// Four nodes multiply the sums by four per round; 600 rounds pass
	// the float64 range and every word ends at +Inf on both sides.
	o := opts(control.BenchAllReduce, func(o *control.Options) { o.Rounds, o.Warmup = 600, 0 })
	res, err := runBench(t, o)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Verified {
		t.Fatal("result not verified")
	}
}

func TestSSSPPartialRelaxationPasses(t *testing.T) {
	o := opts(control.BenchSSSP, func(o *control.Options) {
		o.Threshold, o.Graph, o.GraphSize, o.Rounds, o.Warmup, o.SSSPMode = 0, "ring", 8, 1, 0, "relax"
	})
	// One pass cannot be expected to converge; only the lower bound is checked.
	if _, err := runBench(t, o); err != nil {
		t.Fatalf("partial relaxation rejected: %v", err)
	}
}

func TestReportFormats(t *testing.T) {
	res := &bench.Result{Bench: "barrier", Rounds: 4, Elapsed: 4 * time.Microsecond}
	rep := bench.NewReport(res, map[string]any{"nodes": 4}, nil)
	var text, js bytes.Buffer
	if err := rep.WriteText(&text); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text.String(), "barrier finished\n") || !strings.Contains(text.String(), "4,000 ns") {
		t.Fatalf("text report:\n%s", text.String())
	}
	if err := rep.WriteJSON(&js); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"per_round_ns":1000`) {
		t.Fatalf("json report %s", js.String())
	}
}

func TestUnknownBench(t *testing.T) {
	_, err := bench.New(&control.Options{Bench: "bogus"})
	if api.CodeOf(err) != api.ErrCodeConfig {
		t.Fatalf("got %v", err)
	}
}
