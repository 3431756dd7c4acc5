// File: internal/concurrency/fabric.go
// Package concurrency implements the pinned worker fabric.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fabric spawns one goroutine per (node, thread) pair, locks each to an OS
// thread and optionally pins it to a CPU. Node 0 thread 0 runs on the
// caller's goroutine. Cores beyond threads-per-node run idle placeholders
// that only join the final rendezvous.

package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-coll/api"
)

// WorkFunc is the body run by every participating executor.
type WorkFunc func(w *Worker) error

// Worker is the per-executor handle passed to a WorkFunc.
type Worker struct {
	api.Rank
	Topo api.Topology
	Log  zerolog.Logger
	ctx  context.Context
	gate *SpinBarrier
}

// Context returns the run context. Spin paths never consult it.
func (w *Worker) Context() context.Context { return w.ctx }

// Rendezvous blocks until every participating executor has arrived.
func (w *Worker) Rendezvous() { w.gate.Await() }

// Fabric owns the topology and the bootstrap policy.
type Fabric struct {
	topo   api.Topology
	pinner api.Pinner
	pin    bool
	log    zerolog.Logger
}

// FabricOption configures a Fabric.
type FabricOption func(*Fabric)

// WithPinner enables CPU pinning through p.
func WithPinner(p api.Pinner) FabricOption {
	return func(f *Fabric) { f.pinner, f.pin = p, p != nil }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) FabricOption {
	return func(f *Fabric) { f.log = l }
}

// NewFabric validates topo and returns a fabric. No goroutine is started.
func NewFabric(topo api.Topology, opts ...FabricOption) (*Fabric, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	f := &Fabric{topo: topo, log: zerolog.Nop()}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// Topology returns the fabric topology.
func (f *Fabric) Topology() api.Topology { return f.topo }

// Run executes fn on every participant and returns once all executors,
// idle placeholders included, have reached the final rendezvous.
func (f *Fabric) Run(ctx context.Context, fn WorkFunc) error {
	topo := f.topo
	g, gctx := errgroup.WithContext(ctx)
	gate := NewSpinBarrier(topo.Participants())

	var finish sync.WaitGroup
	finish.Add(topo.Nodes * topo.Cores)
	released := make(chan struct{})
	go func() {
		finish.Wait()
		close(released)
	}()

	for n := 0; n < topo.Nodes; n++ {
		for t := 0; t < topo.Cores; t++ {
			r := api.Rank{Node: n, Thread: t}
			if r.IsOrchestrator() {
				continue
			}
			if t >= topo.ThreadsPerNode {
				g.Go(func() error {
					finish.Done()
					<-released
					return nil
				})
				continue
			}
			g.Go(func() error {
				if err := f.bind(r, true); err != nil {
					f.log.Warn().Err(err).Stringer("rank", r).Msg("pin failed")
				}
				// The goroutine exits locked so a pinned thread is discarded.
				err := f.invoke(gctx, r, gate, fn)
				finish.Done()
				<-released
				return err
			})
		}
	}

	orch := api.Rank{}
	if err := f.bind(orch, f.pin); err != nil {
		f.log.Warn().Err(err).Stringer("rank", orch).Msg("pin failed")
	}
	if !f.pin {
		defer runtime.UnlockOSThread()
	}
	err := f.invoke(gctx, orch, gate, fn)
	finish.Done()
	<-released
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func (f *Fabric) bind(r api.Rank, pin bool) error {
	if !pin || f.pinner == nil {
		runtime.LockOSThread()
		return nil
	}
	return f.pinner.Pin(f.topo.CPUOf(r))
}

func (f *Fabric) invoke(ctx context.Context, r api.Rank, gate *SpinBarrier, fn WorkFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker %s panicked: %v", r, p)
		}
	}()
	w := &Worker{
		Rank: r,
		Topo: f.topo,
		Log:  f.log.With().Int("node", r.Node).Int("thread", r.Thread).Logger(),
		ctx:  ctx,
		gate: gate,
	}
	return fn(w)
}
