// Package api
// Author: momentics@gmail.com
//
// Bounded single-producer/single-consumer ring contract.

package api

// Ring is a bounded SPSC ring with spin-blocking and non-blocking access.
type Ring[T any] interface {
	// Push spins until a slot is free, then appends item.
	Push(item T)
	// TryPush appends item, returns false if full.
	TryPush(item T) bool
	// Pop spins until an item is available and removes it.
	Pop() T
	// TryPop removes the oldest item, returns false if empty.
	TryPop() (T, bool)
	// Len returns current number of items.
	Len() int
	// Cap returns the number of usable slots.
	Cap() int
}
