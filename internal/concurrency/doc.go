// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency runs the simulated cluster: Fabric spawns one
// goroutine per (node, thread) participant, SpinBarrier aligns them at
// measurement boundaries, and RingBuffer is the doorbell-indexed SPSC queue
// used by the histogram benchmark.
package concurrency
