package concurrency

import (
	"testing"
	"time"

	"github.com/momentics/hioload-coll/pool"
)

func TestAvailableSlots(t *testing.T) {
	cases := []struct {
		head, tail, cap, want uint64
	}{
		{0, 0, 8, 7},
		{3, 3, 8, 7},
		{5, 2, 8, 2},
		{2, 5, 8, 4},
		{0, 7, 8, 0},
		{4, 3, 8, 0},
	}
	for _, c := range cases {
		if got := AvailableSlots(c.head, c.tail, c.cap); got != c.want {
			t.Errorf("AvailableSlots(%d,%d,%d) = %d, want %d", c.head, c.tail, c.cap, got, c.want)
		}
	}
}

func TestRingKeepsOneSlotEmpty(t *testing.T) {
	r, err := NewRingBuffer[int](pool.NewAllocator(pool.WithHeap()), 4, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Cap() != 3 {
		t.Fatalf("Cap() = %d, want 3", r.Cap())
	}
	for i := 0; i < 3; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d rejected", i)
		}
	}
	if r.TryPush(99) {
		t.Fatal("push into full ring accepted")
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d", r.Len())
	}
	for i := 0; i < 3; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d = %d,%v", i, v, ok)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("pop from empty ring succeeded")
	}
}

func TestRingRejectsTinyCapacity(t *testing.T) {
	if _, err := NewRingBuffer[int](pool.NewAllocator(pool.WithHeap()), 1, 0, 0); err == nil {
		t.Fatal("capacity 1 accepted")
	}
}

func TestRingFIFOAcrossThreads(t *testing.T) {
	const total = 20000
	r, err := NewRingBuffer[int](pool.NewAllocator(pool.WithHeap()), 8, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			if n := r.Len(); n > r.Cap() {
				t.Errorf("occupancy %d exceeds %d", n, r.Cap())
				return
			}
			if v := r.Pop(); v != i {
				t.Errorf("pop %d got %d", i, v)
				return
			}
		}
	}()
	for i := 0; i < total; i++ {
		r.Push(i)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer stuck")
	}
}
