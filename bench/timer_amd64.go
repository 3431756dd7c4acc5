//go:build amd64

// File: bench/timer_amd64.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bench

import (
	"time"

	"github.com/dterei/gotsc"
)

// timer measures wall time and TSC cycles of the measured rounds.
type timer struct {
	wall     time.Time
	tsc      uint64
	overhead uint64
}

func (t *timer) start() {
	t.overhead = gotsc.TSCOverhead()
	t.wall = time.Now()
	t.tsc = gotsc.BenchStart()
}

func (t *timer) stop() (time.Duration, uint64) {
	end := gotsc.BenchEnd()
	elapsed := time.Since(t.wall)
	cycles := end - t.tsc
	if cycles > t.overhead {
		cycles -= t.overhead
	}
	return elapsed, cycles
}
