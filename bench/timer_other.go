//go:build !amd64

// File: bench/timer_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bench

import "time"

// timer measures wall time; no cycle counter is read off amd64.
type timer struct {
	wall time.Time
}

func (t *timer) start() { t.wall = time.Now() }

func (t *timer) stop() (time.Duration, uint64) { return time.Since(t.wall), 0 }
