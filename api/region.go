// File: api/region.go
// Author: momentics <momentics@gmail.com>
//
// Memory visibility tags for shared regions and the registration hook
// consumed by the external simulator collaborator.

package api

// RegionKind tags a region with its intended store semantics.
type RegionKind uint8

const (
	// RegionPlain is ordinary shared memory.
	RegionPlain RegionKind = iota
	// RegionNonTemporal models streaming stores that bypass caches.
	RegionNonTemporal
	// RegionReleaseOrdered models release stores: a write becomes visible
	// only after every prior write of the same thread.
	RegionReleaseOrdered
)

func (k RegionKind) String() string {
	switch k {
	case RegionPlain:
		return "plain"
	case RegionNonTemporal:
		return "non-temporal"
	case RegionReleaseOrdered:
		return "release-ordered"
	default:
		return "unknown"
	}
}

// RegionRegistrar receives every tagged allocation. Simulator integrations
// use it to mark address ranges; the core never depends on its behavior.
type RegionRegistrar interface {
	Register(kind RegionKind, start, end uintptr)
}

// RegistrarFunc adapts a function to RegionRegistrar.
type RegistrarFunc func(kind RegionKind, start, end uintptr)

func (f RegistrarFunc) Register(kind RegionKind, start, end uintptr) { f(kind, start, end) }
