// File: internal/concurrency/ring.go
// Package concurrency implements the doorbell-indexed SPSC task ring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer whose head and tail indices are
// exchanged through doorbells. The consumer owns head, the producer owns
// tail; one slot always stays empty to tell full from empty.

package concurrency

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
	"github.com/momentics/hioload-coll/pool"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*RingBuffer[any])(nil)

// RingBuffer is a single-producer, single-consumer ring of capacity slots.
type RingBuffer[T any] struct {
	slots    []T
	capacity uint64
	head     *doorbell.Cell // written by the consumer
	tail     *doorbell.Cell // written by the producer
}

// AvailableSlots returns the free slots for the given indices.
func AvailableSlots(head, tail, capacity uint64) uint64 {
	switch {
	case head == tail:
		return capacity - 1
	case head > tail:
		return head - tail - 1
	default:
		return capacity + head - tail - 1
	}
}

// NewRingBuffer allocates a ring of capacity slots. The head doorbell lives
// on the producer's node (where it is polled), the tail on the consumer's.
func NewRingBuffer[T any](a *pool.Allocator, capacity, producerNode, consumerNode int) (*RingBuffer[T], error) {
	if capacity < 2 {
		return nil, api.NewError(api.ErrCodeConfig, "ring capacity must be at least 2").WithContext("capacity", capacity)
	}
	head, err := doorbell.NewBank(a, producerNode, 1)
	if err != nil {
		return nil, err
	}
	tail, err := doorbell.NewBank(a, consumerNode, 1)
	if err != nil {
		return nil, err
	}
	return &RingBuffer[T]{
		slots:    make([]T, capacity),
		capacity: uint64(capacity),
		head:     &head[0],
		tail:     &tail[0],
	}, nil
}

// Push spins until a slot is free, then appends item.
func (r *RingBuffer[T]) Push(item T) {
	tail := r.tail.Load()
	doorbell.SpinUntil(func() bool {
		return AvailableSlots(r.head.Load(), tail, r.capacity) >= 1
	})
	r.slots[tail] = item
	r.tail.Set((tail + 1) % r.capacity)
}

// TryPush appends item; returns false if full.
func (r *RingBuffer[T]) TryPush(item T) bool {
	tail := r.tail.Load()
	if AvailableSlots(r.head.Load(), tail, r.capacity) < 1 {
		return false
	}
	r.slots[tail] = item
	r.tail.Set((tail + 1) % r.capacity)
	return true
}

// Pop spins until an item is available and removes it.
func (r *RingBuffer[T]) Pop() T {
	head := r.head.Load()
	doorbell.SpinUntil(func() bool {
		return r.used(head, r.tail.Load()) >= 1
	})
	item := r.slots[head]
	r.head.Set((head + 1) % r.capacity)
	return item
}

// TryPop removes and returns the oldest item; ok false if empty.
func (r *RingBuffer[T]) TryPop() (item T, ok bool) {
	head := r.head.Load()
	if r.used(head, r.tail.Load()) < 1 {
		return item, false
	}
	item = r.slots[head]
	r.head.Set((head + 1) % r.capacity)
	return item, true
}

// Len returns number of items currently in buffer.
func (r *RingBuffer[T]) Len() int {
	return int(r.used(r.head.Load(), r.tail.Load()))
}

// Cap returns the usable capacity (one slot is reserved).
func (r *RingBuffer[T]) Cap() int {
	return int(r.capacity - 1)
}

// Indices returns the raw head and tail, for telemetry.
func (r *RingBuffer[T]) Indices() (head, tail uint64) {
	return r.head.Load(), r.tail.Load()
}

func (r *RingBuffer[T]) used(head, tail uint64) uint64 {
	return r.capacity - 1 - AvailableSlots(head, tail, r.capacity)
}
