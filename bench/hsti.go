// File: bench/hsti.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Histogram without a task queue. Every executor scans its item of the
// frame pool each round and marks bins of its node's shared histogram.
// After the intra-node fan-in the node leader writes that histogram back,
// at the copy stride, into its segment of the global histogram on node 0.

package bench

import (
	"sync/atomic"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
)

type hsti struct {
	opts       *control.Options
	itemSize   int
	frames     [][]uint64 // per node replica
	local      [][]uint64 // per node, shared by its threads
	global     []uint64   // on node 0, one segment of Bins per node
	sync       *collective.ChainSync
	writebacks atomic.Uint64
}

func (h *hsti) Name() string { return control.BenchHsti }

func (h *hsti) Setup(env *Env) error {
	o := env.Opts
	h.opts = o
	h.itemSize = o.FrameSize / o.ThreadsPerFrame
	var err error
	if h.frames, err = buildFrames(env); err != nil {
		return err
	}
	h.local = make([][]uint64, o.Nodes)
	for n := range h.local {
		if h.local[n], err = env.Alloc.Uint64s(api.RegionNonTemporal, o.Bins, n); err != nil {
			return err
		}
	}
	if h.global, err = env.Alloc.Uint64s(api.RegionNonTemporal, o.Nodes*o.Bins, 0); err != nil {
		return err
	}
	env.Log.Debug().Int("bins", o.Bins).Msg("allocated hist")
	if h.sync, err = collective.NewChainSync(env.Alloc, o.Topology()); err != nil {
		return err
	}
	env.probe("hsti", h.sync)
	return nil
}

func (h *hsti) Round(w *concurrency.Worker, r uint64) {
	n := w.Node
	hist := h.local[n]
	base := frameItem(h.opts, r, n, w.Thread) * h.itemSize
	frames := h.frames[n]
	bins := uint64(len(hist))
	for i := 0; i < h.itemSize; i += scanStride {
		// Threads of a node mark the same histogram concurrently.
		atomic.StoreUint64(&hist[frames[(base+i)%len(frames)]%bins], 1)
	}
	h.sync.Local(w.Rank, r, func() {
		seg := h.global[n*len(hist) : (n+1)*len(hist)]
		for i := 0; i < len(hist); i += h.opts.Stride {
			seg[i] = hist[i]
		}
		h.writebacks.Add(1)
	})
}

// Verify replays every node's scans, then checks the node histograms and
// the strided write-back into node 0.
func (h *hsti) Verify() error {
	o := h.opts
	total := uint64(o.Warmup + o.Rounds)
	if got := h.sync.Stats().Rounds; got != total {
		return mismatch("hsti", "rounds", 0, float64(got), float64(total))
	}
	want := make([]uint64, o.Bins)
	for n := 0; n < o.Nodes; n++ {
		clear(want)
		for r := uint64(1); r <= total; r++ {
			for t := 0; t < o.Threads; t++ {
				base := frameItem(o, r, n, t) * h.itemSize
				for i := 0; i < h.itemSize; i += scanStride {
					want[h.frames[0][(base+i)%len(h.frames[0])]%uint64(o.Bins)] = 1
				}
			}
		}
		seg := h.global[n*o.Bins : (n+1)*o.Bins]
		for b := range want {
			if got := h.local[n][b]; got != want[b] {
				return mismatch("hsti", "node "+itoa(n)+" bin", b, float64(got), float64(want[b]))
			}
			var back uint64
			if total > 0 && b%o.Stride == 0 {
				back = want[b]
			}
			if seg[b] != back {
				return mismatch("hsti", "global segment "+itoa(n)+" bin", b, float64(seg[b]), float64(back))
			}
		}
	}
	return nil
}

func (h *hsti) Stats() collective.Stats {
	s := h.sync.Stats()
	s.Stages += h.writebacks.Load()
	return s
}
