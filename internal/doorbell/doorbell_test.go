package doorbell

import (
	"testing"
	"time"
	"unsafe"

	"github.com/momentics/hioload-coll/pool"
)

func TestCellLayout(t *testing.T) {
	if unsafe.Sizeof(Cell{}) != CellSize {
		t.Fatalf("cell size %d", unsafe.Sizeof(Cell{}))
	}
	b, err := NewBank(pool.NewAllocator(pool.WithHeap()), 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	d := uintptr(unsafe.Pointer(&b[1])) - uintptr(unsafe.Pointer(&b[0]))
	if d != CellSize {
		t.Fatalf("cells %d bytes apart", d)
	}
	if uintptr(unsafe.Pointer(&b[0]))%CellSize != 0 {
		t.Fatal("bank not cache-line aligned")
	}
}

func TestNegTokens(t *testing.T) {
	if Neg(1) == 1 || Neg(Neg(7)) != 7 {
		t.Fatal("reverse token must differ and invert")
	}
	if Neg(0) != 0 {
		t.Fatal("zero has no reverse")
	}
}

func TestWaitObservesPayload(t *testing.T) {
	var bell, ack Cell
	payload := make([]uint64, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := uint64(1); r <= 100; r++ {
			bell.Wait(r)
			for i, v := range payload {
				if v != r {
					t.Errorf("round %d word %d = %d", r, i, v)
				}
			}
			ack.Set(r)
		}
	}()
	for r := uint64(1); r <= 100; r++ {
		for i := range payload {
			payload[i] = r
		}
		bell.Set(r)
		ack.Wait(r)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reader stuck")
	}
}

func TestPollNonBlocking(t *testing.T) {
	var c Cell
	if c.Poll(1) {
		t.Fatal("fresh cell must not match 1")
	}
	c.Set(1)
	if !c.Poll(1) {
		t.Fatal("poll missed set")
	}
}

func TestClaimHasOneWinner(t *testing.T) {
	var c Cell
	const racers = 8
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		go func() { wins <- c.Claim(0, 1) }()
	}
	won := 0
	for i := 0; i < racers; i++ {
		if <-wins {
			won++
		}
	}
	if won != 1 || c.Load() != 1 {
		t.Fatalf("%d winners, cell %d", won, c.Load())
	}
	if c.Claim(0, 2) {
		t.Fatal("stale claim succeeded")
	}
}

func TestMatrix(t *testing.T) {
	m, err := NewMatrix(pool.NewAllocator(pool.WithHeap()), 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	m.At(2, 1).Set(9)
	snap := m.Snapshot()
	if snap[2*3+1] != 9 {
		t.Fatalf("snapshot %v", snap)
	}
}

func BenchmarkPingPong(b *testing.B) {
	var ping, pong Cell
	go func() {
		for r := uint64(1); r <= uint64(b.N); r++ {
			ping.Wait(r)
			pong.Set(r)
		}
	}()
	for r := uint64(1); r <= uint64(b.N); r++ {
		ping.Set(r)
		pong.Wait(r)
	}
}
