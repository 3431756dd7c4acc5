// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-coll/api"
)

// SetAffinity pins current OS thread to a given logical CPU/core on supported platforms.
// The goroutine stays locked to its OS thread even if pinning fails.
func SetAffinity(cpuID int) error {
	runtime.LockOSThread()
	if cpuID < 0 {
		return api.NewError(api.ErrCodeConfig, "affinity: negative cpu id").WithContext("cpu", cpuID)
	}
	// Wrap around so oversubscribed topologies still run.
	return setAffinityPlatform(cpuID % runtime.NumCPU())
}

// Pinner returns an api.Pinner backed by SetAffinity.
func Pinner() api.Pinner { return api.PinnerFunc(SetAffinity) }

// NoPin returns a Pinner that only locks the OS thread.
func NoPin() api.Pinner {
	return api.PinnerFunc(func(int) error {
		runtime.LockOSThread()
		return nil
	})
}
