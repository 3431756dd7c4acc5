// File: pool/region.go
// Author: momentics <momentics@gmail.com>
//
// Tagged, zero-initialized shared memory regions.

package pool

import (
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-coll/api"
)

// CacheLineSize is the alignment and rounding unit for every region.
const CacheLineSize = 64

// Region is a contiguous, cache-line aligned memory block carrying a
// visibility tag. Regions hold no Go pointers.
type Region struct {
	kind     api.RegionKind
	node     int
	buf      []byte
	mapped   []byte
	owner    *Allocator
	released atomic.Bool
}

// Kind returns the visibility tag.
func (r *Region) Kind() api.RegionKind { return r.kind }

// Node returns the node the region was allocated for.
func (r *Region) Node() int { return r.node }

// Bytes returns the raw region.
func (r *Region) Bytes() []byte { return r.buf }

// Len returns the region size in bytes.
func (r *Region) Len() int { return len(r.buf) }

// Addr returns the start address, for registration.
func (r *Region) Addr() uintptr {
	if len(r.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.buf[0]))
}

// Float64s views the region as float64 words.
func (r *Region) Float64s() []float64 {
	if len(r.buf) < 8 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.buf[0])), len(r.buf)/8)
}

// Uint64s views the region as unsigned words.
func (r *Region) Uint64s() []uint64 {
	if len(r.buf) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&r.buf[0])), len(r.buf)/8)
}

// Release returns the region to its allocator. Safe to call twice.
func (r *Region) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.owner != nil {
		r.owner.release(r)
	}
}

// roundUp rounds n up to a whole number of cache lines.
func roundUp(n int) int {
	return (n + CacheLineSize - 1) &^ (CacheLineSize - 1)
}
