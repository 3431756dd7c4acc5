// control/watchdog.go
// Author: momentics <momentics@gmail.com>
//
// Hang reporter. A missing doorbell signal is a permanent hang; the
// watchdog only logs the probe state so the stuck cell can be found.

package control

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-coll/api"
)

// Watchdog dumps probe state once a run exceeds its deadline.
type Watchdog struct {
	after  time.Duration
	probes api.Debug
	log    zerolog.Logger
}

// NewWatchdog returns a watchdog; after <= 0 disables it.
func NewWatchdog(after time.Duration, probes api.Debug, log zerolog.Logger) *Watchdog {
	return &Watchdog{after: after, probes: probes, log: log}
}

// Start arms the watchdog and returns a function that disarms it.
func (w *Watchdog) Start() (stop func()) {
	if w.after <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTimer(w.after)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			w.log.Error().
				Dur("after", w.after).
				Interface("state", w.probes.DumpState()).
				Msg("run exceeded hang-report deadline")
		}
	}()
	return func() { close(done) }
}
