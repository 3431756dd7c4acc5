// Package api
// Author: momentics@gmail.com
//
// CPU affinity contract used by the worker fabric.

package api

// Pinner binds the calling OS thread to a logical CPU.
type Pinner interface {
	// Pin locks the current goroutine to its OS thread and binds it to cpuID.
	Pin(cpuID int) error
}

// PinnerFunc adapts a function to Pinner.
type PinnerFunc func(cpuID int) error

func (f PinnerFunc) Pin(cpuID int) error { return f(cpuID) }
