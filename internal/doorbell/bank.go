// File: internal/doorbell/bank.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package doorbell

import (
	"unsafe"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

// Bank is a contiguous array of doorbells carved from one
// release-ordered region.
type Bank []Cell

// NewBank allocates n zeroed doorbells for node.
func NewBank(a *pool.Allocator, node, n int) (Bank, error) {
	if n <= 0 {
		return nil, api.NewError(api.ErrCodeConfig, "doorbell bank must not be empty").WithContext("n", n)
	}
	r, err := a.ReleaseOrdered(n*CellSize, node)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*Cell)(unsafe.Pointer(&r.Bytes()[0])), n), nil
}

// Snapshot copies the current values, for debug probes.
func (b Bank) Snapshot() []uint64 {
	out := make([]uint64, len(b))
	for i := range b {
		out[i] = b[i].Load()
	}
	return out
}

// Matrix is a square bank addressed by (row, col).
type Matrix struct {
	n     int
	cells Bank
}

// NewMatrix allocates an n x n bank for node.
func NewMatrix(a *pool.Allocator, node, n int) (*Matrix, error) {
	b, err := NewBank(a, node, n*n)
	if err != nil {
		return nil, err
	}
	return &Matrix{n: n, cells: b}, nil
}

// At returns the cell at (row, col).
func (m *Matrix) At(row, col int) *Cell { return &m.cells[row*m.n+col] }

// Snapshot copies all values row-major.
func (m *Matrix) Snapshot() []uint64 { return m.cells.Snapshot() }
