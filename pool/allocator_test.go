package pool_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/pool"
)

func TestAllocZeroedAndAligned(t *testing.T) {
	for _, a := range []*pool.Allocator{pool.NewAllocator(), pool.NewAllocator(pool.WithHeap())} {
		r, err := a.NonTemporal(100, 1)
		if err != nil {
			t.Fatal(err)
		}
		if r.Len() != 100 || r.Kind() != api.RegionNonTemporal || r.Node() != 1 {
			t.Fatalf("unexpected region %d %v %d", r.Len(), r.Kind(), r.Node())
		}
		if r.Addr()%pool.CacheLineSize != 0 {
			t.Errorf("region not cache-line aligned: %#x", r.Addr())
		}
		for i, b := range r.Bytes() {
			if b != 0 {
				t.Fatalf("byte %d not zero", i)
			}
		}
		a.Close()
	}
}

func TestRegistrarSeesEveryRegion(t *testing.T) {
	var kinds []api.RegionKind
	a := pool.NewAllocator(pool.WithHeap(), pool.WithRegistrar(api.RegistrarFunc(
		func(k api.RegionKind, start, end uintptr) {
			if end-start < 64 {
				t.Errorf("short registration %d", end-start)
			}
			kinds = append(kinds, k)
		})))
	defer a.Close()
	if _, err := a.Plain(8, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ReleaseOrdered(8, 0); err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || kinds[0] != api.RegionPlain || kinds[1] != api.RegionReleaseOrdered {
		t.Fatalf("registrations %v", kinds)
	}
}

func TestReleaseAccounting(t *testing.T) {
	a := pool.NewAllocator()
	r, err := a.Plain(4096, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st := a.Stats(); st.Live != 1 || st.LiveByte != 4096 {
		t.Fatalf("stats after alloc %+v", st)
	}
	r.Release()
	r.Release()
	if st := a.Stats(); st.Live != 0 || st.LiveByte != 0 {
		t.Fatalf("stats after release %+v", st)
	}
}

func TestAllocRejectsEmpty(t *testing.T) {
	a := pool.NewAllocator(pool.WithHeap())
	_, err := a.Plain(0, 0)
	if !errors.Is(err, api.ErrRegionAlloc) {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestFloatView(t *testing.T) {
	a := pool.NewAllocator(pool.WithHeap())
	defer a.Close()
	f, err := a.Float64s(api.RegionPlain, 16, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != 16 {
		t.Fatalf("len %d", len(f))
	}
	f[15] = 1.5
	if f[15] != 1.5 {
		t.Fatal("write lost")
	}
}
