// Package control
// Author: momentics <momentics@gmail.com>
//
// Run configuration, metrics, debug probes and the hang watchdog.
//
// Provides:
//   - Options bound to CLI flags and validated before any worker starts
//   - A snapshot config store with change listeners
//   - Round and stage counters folded in after each run
//   - Probes that dump doorbell banks for a stuck run
package control
