package affinity_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/momentics/hioload-coll/affinity"
	"github.com/momentics/hioload-coll/api"
)

// Goroutines exit while still locked so the pinned thread is discarded.
func TestSetAffinityRejectsNegative(t *testing.T) {
	done := make(chan error)
	go func() {
		done <- affinity.SetAffinity(-1)
	}()
	err := <-done
	if !errors.Is(err, api.ErrInvalidTopology) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSetAffinityCurrentCPU(t *testing.T) {
	done := make(chan error)
	go func() {
		done <- affinity.SetAffinity(0)
	}()
	if err := <-done; err != nil && runtime.GOOS == "linux" {
		t.Fatalf("pin to cpu 0: %v", err)
	}
}
