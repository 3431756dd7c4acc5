// File: internal/concurrency/barrier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SpinBarrier is a reusable counting rendezvous used to bracket measured
// rounds. Collectives synchronize through doorbells instead.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-coll/internal/doorbell"
)

// SpinBarrier releases all n parties once the last one arrives.
type SpinBarrier struct {
	n       int32
	_       cpu.CacheLinePad
	arrived atomic.Int32
	_       cpu.CacheLinePad
	gen     atomic.Uint32
	_       cpu.CacheLinePad
}

// NewSpinBarrier creates a barrier for n parties.
func NewSpinBarrier(n int) *SpinBarrier {
	return &SpinBarrier{n: int32(n)}
}

// Await blocks until all parties of the current generation arrive.
func (b *SpinBarrier) Await() {
	gen := b.gen.Load()
	if b.arrived.Add(1) == b.n {
		b.arrived.Store(0)
		b.gen.Add(1)
		return
	}
	doorbell.SpinUntil(func() bool { return b.gen.Load() != gen })
}
