// File: bench/sendrecv.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Point-to-point microbenchmark: node 0 sends a synthetic payload to
// every other node each round; receivers wait and scan it. With -pad,
// node 0 repeats the send pad/(nodes-1) times into cache-line separated
// doorbells and buffer slices, and only node 1 waits (on the last
// repetition) and scans every slice.

package bench

import (
	"sync/atomic"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/collective"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/internal/doorbell"
)

type sendRecv struct {
	opts   *control.Options
	reps   int
	padded bool
	recv   [][]float64     // per node, reps*Elements
	bells  []doorbell.Bank // per node, one cell per repetition
	sink   []float64       // per node scan result
	rounds atomic.Uint64
	sends  atomic.Uint64
}

func (s *sendRecv) Name() string { return control.BenchSendRecv }

func (s *sendRecv) Setup(env *Env) error {
	o := env.Opts
	s.opts = o
	s.reps = 1
	if o.Pad > 0 {
		s.padded = true
		s.reps = max(1, o.Pad/(o.Nodes-1))
	}
	s.recv = make([][]float64, o.Nodes)
	s.bells = make([]doorbell.Bank, o.Nodes)
	s.sink = make([]float64, o.Nodes*8)
	for n := 1; n < o.Nodes; n++ {
		var err error
		if s.recv[n], err = env.Alloc.Float64s(api.RegionNonTemporal, s.reps*o.Elements, n); err != nil {
			return err
		}
		if s.bells[n], err = doorbell.NewBank(env.Alloc, n, s.reps); err != nil {
			return err
		}
	}
	env.Log.Debug().Int("reps", s.reps).Msg("allocated receive buffers")
	env.probe("sendrecv", s)
	return nil
}

func (s *sendRecv) slice(node, rep int) []float64 {
	e := s.opts.Elements
	return s.recv[node][rep*e : (rep+1)*e]
}

// Round keeps every thread in the per-round rendezvous; only thread 0 of
// each node takes part in the exchange.
func (s *sendRecv) Round(w *concurrency.Worker, r uint64) {
	w.Rendezvous()
	if w.Thread != 0 {
		return
	}
	n, stride := w.Node, s.opts.Stride
	switch {
	case n == 0:
		for i := 0; i < s.reps; i++ {
			for nid := 1; nid < s.opts.Nodes; nid++ {
				collective.Send(api.Synthetic(), s.slice(nid, i), &s.bells[nid][i], r, stride)
			}
		}
		s.sends.Add(uint64(s.reps * (s.opts.Nodes - 1)))
		s.rounds.Add(1)
	case !s.padded:
		collective.Wait(&s.bells[n][0], r)
		s.scan(n, s.slice(n, 0))
	case n == 1:
		collective.Wait(&s.bells[n][s.reps-1], r)
		for i := 0; i < s.reps; i++ {
			s.scan(n, s.slice(n, i))
		}
	}
}

func (s *sendRecv) scan(node int, buf []float64) {
	acc := 0.0
	for i := 0; i < len(buf); i += s.opts.Stride {
		acc += buf[i]
	}
	s.sink[node*8] = acc
}

// Verify checks the synthetic pattern: word i carries i.
func (s *sendRecv) Verify() error {
	if s.opts.Warmup+s.opts.Rounds == 0 {
		return nil
	}
	for n := 1; n < s.opts.Nodes; n++ {
		for i := 0; i < s.reps; i++ {
			for k, got := range s.slice(n, i) {
				if got != float64(k) {
					return mismatch("sendrecv", "node "+itoa(n)+" rep "+itoa(i), k, got, float64(k))
				}
			}
		}
	}
	return nil
}

func (s *sendRecv) Stats() collective.Stats {
	return collective.Stats{Rounds: s.rounds.Load(), Stages: s.sends.Load()}
}

// Dump exposes the per-repetition doorbells.
func (s *sendRecv) Dump() map[string][]uint64 {
	out := make(map[string][]uint64, len(s.bells))
	for n := 1; n < len(s.bells); n++ {
		out["bell."+itoa(n)] = s.bells[n].Snapshot()
	}
	return out
}
