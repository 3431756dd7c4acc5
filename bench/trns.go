// File: bench/trns.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-place transpose by cycle following. The (nodes*threads) x cols
// matrix of cache-line elements is spread over the nodes. Every executor
// walks all positions starting at its own row; for a position not yet
// visited it follows the permutation cycle, and the executor that claims
// the cycle's smallest position rotates the whole cycle, ringing each
// element's done doorbell. Others poll those doorbells to skip finished
// work. A hierarchical barrier closes the round.

package bench

import (
	"sync/atomic"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/internal/doorbell"
)

// trnsWords is the element width: one cache line of words.
const trnsWords = 8

type trnsBench struct {
	opts          *control.Options
	topo          api.Topology
	rows, cols    int
	perNode       int // elements per node
	mat           *spread
	done          []doorbell.Bank // per node, one cell per element
	claims        []doorbell.Bank // per node, one cell per element; only cycle leaders are used
	visited       [][]uint64      // per participant bitmap over positions
	bar           *collective.Barrier
	moved, cycles atomic.Uint64
}

func (x *trnsBench) Name() string { return control.BenchTrns }

func trnsValue(pos, word int) uint64 { return uint64(pos*trnsWords + word + 1) }

func (x *trnsBench) Setup(env *Env) error {
	o := env.Opts
	a := env.Alloc
	x.opts, x.topo = o, o.Topology()
	x.rows, x.cols = o.Nodes*o.Threads, o.Columns()
	x.perNode = o.Threads * x.cols
	var err error
	if x.mat, err = newSpread(a, api.RegionNonTemporal, o.Nodes, x.perNode*trnsWords); err != nil {
		return err
	}
	x.done = make([]doorbell.Bank, o.Nodes)
	x.claims = make([]doorbell.Bank, o.Nodes)
	for n := 0; n < o.Nodes; n++ {
		if x.done[n], err = doorbell.NewBank(a, n, x.perNode); err != nil {
			return err
		}
		if x.claims[n], err = doorbell.NewBank(a, n, x.perNode); err != nil {
			return err
		}
	}
	env.Log.Debug().Int("rows", x.rows).Int("cols", x.cols).Msg("allocated matrix and flags")

	words := (x.rows*x.cols + 63) / 64
	x.visited = make([][]uint64, x.topo.Participants())
	for i := range x.visited {
		if x.visited[i], err = a.Uint64s(api.RegionPlain, words, x.topo.RankOf(i).Node); err != nil {
			return err
		}
	}
	if x.bar, err = collective.NewBarrier(a, x.topo); err != nil {
		return err
	}
	for p := 0; p < x.rows*x.cols; p++ {
		e := x.elem(p)
		for i := range e {
			e[i] = trnsValue(p, i)
		}
	}
	env.probe("trns", x)
	return nil
}

// next maps position row*cols+col to its transposed position col*rows+row.
func (x *trnsBench) next(p int) int { return (p%x.cols)*x.rows + p/x.cols }

func (x *trnsBench) elem(p int) []uint64 { return x.mat.span(p*trnsWords, trnsWords) }

func (x *trnsBench) doneBell(p int) *doorbell.Cell { return &x.done[p/x.perNode][p%x.perNode] }

func (x *trnsBench) claim(p int) *doorbell.Cell { return &x.claims[p/x.perNode][p%x.perNode] }

func (x *trnsBench) Round(w *concurrency.Worker, r uint64) {
	vis := x.visited[x.topo.Index(w.Rank)]
	clear(vis)
	seen := func(p int) bool { return vis[p/64]&(1<<(p%64)) != 0 }
	mark := func(p int) { vis[p/64] |= 1 << (p % 64) }

	total := x.rows * x.cols
	start := (w.Node*x.opts.Threads + w.Thread) * x.cols
	for k := 0; k < total; k++ {
		p := (start + k) % total
		if seen(p) {
			continue
		}
		mark(p)
		if x.doneBell(p).Poll(r) {
			continue
		}
		lead := p
		for q := x.next(p); q != p; q = x.next(q) {
			mark(q)
			lead = min(lead, q)
		}
		// Every cycle is claimed exactly once per round, so its leader's
		// claim cell still holds the previous round.
		if x.claim(lead).Claim(r-1, r) {
			x.rotate(lead, r)
		}
	}
	x.bar.Wait(w.Rank, r)
}

// rotate moves every element of lead's cycle one step along the
// permutation. Only words at the stride move; the rest stay in place.
func (x *trnsBench) rotate(lead int, r uint64) {
	stride := x.opts.Stride
	var carry, tmp [trnsWords]uint64
	copy(carry[:], x.elem(lead))
	moved := uint64(0)
	for q := lead; ; {
		nxt := x.next(q)
		e := x.elem(nxt)
		copy(tmp[:], e)
		for i := 0; i < trnsWords; i += stride {
			e[i] = carry[i]
		}
		x.doneBell(nxt).Set(r)
		carry = tmp
		moved++
		if nxt == lead {
			break
		}
		q = nxt
	}
	x.moved.Add(moved)
	x.cycles.Add(1)
}

// Verify replays the permutation: after R rounds the strided words of
// position p sit at next^R(p).
func (x *trnsBench) Verify() error {
	total := x.opts.Warmup + x.opts.Rounds
	if got := x.bar.Stats().Rounds; got != uint64(total) {
		return mismatch("trns", "rounds", 0, float64(got), float64(total))
	}
	var cycle []int
	for p := 0; p < x.rows*x.cols; p++ {
		cycle = append(cycle[:0], p)
		for q := x.next(p); q != p; q = x.next(q) {
			cycle = append(cycle, q)
		}
		dest := cycle[total%len(cycle)]
		for i := 0; i < trnsWords; i++ {
			at := p
			if i%x.opts.Stride == 0 {
				at = dest
			}
			if got, want := x.elem(at)[i], trnsValue(p, i); got != want {
				return mismatch("trns", "position "+itoa(at)+" word", i, float64(got), float64(want))
			}
		}
	}
	return nil
}

func (x *trnsBench) Stats() collective.Stats {
	return collective.Stats{Rounds: x.bar.Stats().Rounds, Stages: x.moved.Load()}
}

// Dump exposes done and claim doorbells plus the round barrier.
func (x *trnsBench) Dump() map[string][]uint64 {
	out := x.bar.Dump()
	out["moved"] = []uint64{x.moved.Load(), x.cycles.Load()}
	for n := range x.done {
		out["done."+itoa(n)] = x.done[n].Snapshot()
		out["claim."+itoa(n)] = x.claims[n].Snapshot()
	}
	return out
}
