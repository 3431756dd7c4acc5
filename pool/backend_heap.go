// File: pool/backend_heap.go
// Author: momentics <momentics@gmail.com>
//
// Heap backend: word-backed slices re-aligned to a cache line.

package pool

import "unsafe"

type heapBackend struct{}

func (heapBackend) Map(size int) ([]byte, error) {
	// Pointer-free backing so the collector never scans region contents.
	words := make([]uint64, (size+CacheLineSize)/8)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	off := 0
	if rem := uintptr(unsafe.Pointer(&raw[0])) % CacheLineSize; rem != 0 {
		off = int(CacheLineSize - rem)
	}
	return raw[off : off+size : off+size], nil
}

func (heapBackend) Unmap([]byte) error { return nil }
