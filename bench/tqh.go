// File: bench/tqh.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task-queue histogram. Controller thread (0,t) pushes one task per round
// into the ring of every worker (n,t), n >= 1. Each worker pops one task
// per round and scans its item of a replicated frame pool, marking the
// histogram bin of every eighth value.

package bench

import (
	"sync/atomic"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
)

type tqh struct {
	opts     *control.Options
	topo     api.Topology
	itemSize int
	queues   [][]*concurrency.RingBuffer[uint64] // [node][thread], node >= 1
	frames   [][]uint64                          // per node replica
	hists    [][]uint64                          // per participant
	bad      atomic.Uint64
	pushes   atomic.Uint64
	pops     atomic.Uint64
	rounds   atomic.Uint64
}

func (q *tqh) Name() string { return control.BenchTQH }

func (q *tqh) Setup(env *Env) error {
	o := env.Opts
	q.opts, q.topo = o, o.Topology()
	q.itemSize = o.FrameSize / o.ThreadsPerFrame
	a := env.Alloc

	var err error
	if q.frames, err = buildFrames(env); err != nil {
		return err
	}

	q.hists = make([][]uint64, q.topo.Participants())
	for i := range q.hists {
		r := q.topo.RankOf(i)
		if q.hists[i], err = a.Uint64s(api.RegionNonTemporal, o.Bins, r.Node); err != nil {
			return err
		}
	}
	q.queues = make([][]*concurrency.RingBuffer[uint64], o.Nodes)
	for n := 1; n < o.Nodes; n++ {
		q.queues[n] = make([]*concurrency.RingBuffer[uint64], o.Threads)
		for t := range q.queues[n] {
			if q.queues[n][t], err = concurrency.NewRingBuffer[uint64](a, o.Capacity, 0, n); err != nil {
				return err
			}
		}
	}
	env.Log.Debug().Int("capacity", o.Capacity).Msg("allocated task queues")
	env.probe("tqh", q)
	return nil
}

func (q *tqh) itemID(r uint64, node, thread int) int {
	return frameItem(q.opts, r, node, thread)
}

func (q *tqh) Round(w *concurrency.Worker, r uint64) {
	if w.Node == 0 {
		for nid := 1; nid < q.opts.Nodes; nid++ {
			q.queues[nid][w.Thread].Push(r)
		}
		q.pushes.Add(uint64(q.opts.Nodes - 1))
		if w.Thread == 0 {
			q.rounds.Add(1)
		}
		return
	}
	if task := q.queues[w.Node][w.Thread].Pop(); task != r {
		q.bad.Add(1)
	}
	q.pops.Add(1)
	q.scan(q.frames[w.Node], q.hists[q.topo.Index(w.Rank)], q.itemID(r, w.Node, w.Thread))
}

func (q *tqh) scan(frames, hist []uint64, item int) {
	base := item * q.itemSize
	bins := uint64(len(hist))
	for i := 0; i < q.itemSize; i += scanStride {
		hist[frames[(base+i)%len(frames)]%bins] = 1
	}
}

// Verify checks that every task arrived in order and replays each
// worker's histogram.
func (q *tqh) Verify() error {
	if n := q.bad.Load(); n != 0 {
		return api.NewError(api.ErrCodeVerification, "tasks popped out of order").WithContext("count", n)
	}
	total := uint64(q.opts.Warmup + q.opts.Rounds)
	want := make([]uint64, q.opts.Bins)
	for i, got := range q.hists {
		rank := q.topo.RankOf(i)
		if rank.Node == 0 {
			continue
		}
		clear(want)
		for r := uint64(1); r <= total; r++ {
			q.scan(q.frames[0], want, q.itemID(r, rank.Node, rank.Thread))
		}
		for b := range want {
			if got[b] != want[b] {
				return mismatch("tqh", rank.String()+" bin", b, float64(got[b]), float64(want[b]))
			}
		}
	}
	return nil
}

func (q *tqh) Stats() collective.Stats {
	return collective.Stats{Rounds: q.rounds.Load(), Stages: q.pushes.Load() + q.pops.Load()}
}

// Dump exposes each ring's head and tail.
func (q *tqh) Dump() map[string][]uint64 {
	out := make(map[string][]uint64)
	for n := 1; n < len(q.queues); n++ {
		for t, ring := range q.queues[n] {
			h, tl := ring.Indices()
			out["ring."+itoa(n)+"."+itoa(t)] = []uint64{h, tl}
		}
	}
	return out
}
