// File: internal/doorbell/doorbell.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package doorbell

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// CellSize is the footprint of one doorbell; one cell per cache line.
const CellSize = 64

// spinBudget is the number of failed polls between scheduler yields.
// Yielding keeps the goroutine runnable; it is not a sleep.
const spinBudget = 256

// Cell is a cache-line isolated doorbell word.
type Cell struct {
	v atomic.Uint64
	_ [CellSize - 8]byte
}

var _ [CellSize - unsafe.Sizeof(Cell{})]byte // layout assert

// Set publishes value. Every write issued before Set is visible to a
// waiter that observes value.
func (c *Cell) Set(value uint64) { c.v.Store(value) }

// Load returns the current value.
func (c *Cell) Load() uint64 { return c.v.Load() }

// Poll is the non-blocking form of Wait.
func (c *Cell) Poll(expected uint64) bool { return c.v.Load() == expected }

// Claim moves the cell from old to new and reports whether this caller
// won. A claim cell has many writers, so nobody may Wait on it.
func (c *Cell) Claim(old, new uint64) bool { return c.v.CompareAndSwap(old, new) }

// Wait spins until the cell equals expected.
func (c *Cell) Wait(expected uint64) {
	for i := 1; c.v.Load() != expected; i++ {
		if i%spinBudget == 0 {
			runtime.Gosched()
		}
	}
}

// Neg returns the reverse token for round r.
func Neg(r uint64) uint64 { return -r }

// Relax is called once per failed poll in hand-written spin loops.
func Relax(iteration int) {
	if iteration%spinBudget == 0 {
		runtime.Gosched()
	}
}

// SpinUntil spins until cond returns true.
func SpinUntil(cond func() bool) {
	for i := 1; !cond(); i++ {
		if i%spinBudget == 0 {
			runtime.Gosched()
		}
	}
}
