// File: bench/pad.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Matrix padding. An (nodes*threads) x cols matrix is spread over the
// nodes; executor (n,t) owns row n*threads+t and rewrites it into a matrix
// whose rows carry pw extra zero columns. Rows are separated per round by
// the chained node sync.

package bench

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
)

type padBench struct {
	opts       *control.Options
	cols, wide int
	threads    int
	in, out    *spread
	sync       *collective.ChainSync
}

func (p *padBench) Name() string { return control.BenchPad }

func padValue(row, col int) uint64 { return uint64(row)<<32 | uint64(col+1) }

func (p *padBench) Setup(env *Env) error {
	o := env.Opts
	p.opts, p.threads = o, o.Threads
	p.cols = o.Columns()
	p.wide = p.cols + o.PadWidth
	var err error
	if p.in, err = newSpread(env.Alloc, api.RegionNonTemporal, o.Nodes, o.Threads*p.cols); err != nil {
		return err
	}
	if p.out, err = newSpread(env.Alloc, api.RegionNonTemporal, o.Nodes, o.Threads*p.wide); err != nil {
		return err
	}
	env.Log.Debug().Int("rows", o.Nodes*o.Threads).Int("cols", p.cols).Int("wide", p.wide).Msg("allocated matrix")
	if p.sync, err = collective.NewChainSync(env.Alloc, o.Topology()); err != nil {
		return err
	}
	for row := 0; row < o.Nodes*o.Threads; row++ {
		for col := 0; col < p.cols; col++ {
			*p.in.at(row*p.cols + col) = padValue(row, col)
		}
	}
	env.probe("pad", p.sync)
	return nil
}

func (p *padBench) Round(w *concurrency.Worker, r uint64) {
	stride := p.opts.Stride
	row := w.Node*p.threads + w.Thread
	in, out := row*p.cols, row*p.wide
	col := 0
	for ; col < p.cols; col += stride {
		*p.out.at(out + col) = *p.in.at(in + col)
	}
	for ; col < p.wide; col += stride {
		*p.out.at(out + col) = 0
	}
	p.sync.Wait(w.Rank, r)
}

// Verify checks every padded row: strided columns carry the source word,
// the rest and the padding stay zero.
func (p *padBench) Verify() error {
	total := uint64(p.opts.Warmup + p.opts.Rounds)
	if got := p.sync.Stats().Rounds; got != total {
		return mismatch("pad", "rounds", 0, float64(got), float64(total))
	}
	if total == 0 {
		return nil
	}
	for row := 0; row < p.opts.Nodes*p.threads; row++ {
		for col := 0; col < p.wide; col++ {
			var want uint64
			if col < p.cols && col%p.opts.Stride == 0 {
				want = padValue(row, col)
			}
			if got := *p.out.at(row*p.wide + col); got != want {
				return mismatch("pad", "row "+itoa(row), col, float64(got), float64(want))
			}
		}
	}
	return nil
}

func (p *padBench) Stats() collective.Stats { return p.sync.Stats() }
