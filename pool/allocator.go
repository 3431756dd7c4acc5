// File: pool/allocator.go
// Author: momentics <momentics@gmail.com>
//
// Memory Region Allocator. Concrete backends are selected at build time
// through platform-specific files.

package pool

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-coll/api"
)

// backend maps and unmaps raw zeroed memory.
type backend interface {
	Map(size int) ([]byte, error)
	Unmap([]byte) error
}

// Stats aggregates allocation accounting per region kind.
type Stats struct {
	Live     int
	LiveByte int64
	ByKind   map[api.RegionKind]int64
}

// Allocator hands out tagged regions and forwards each to the registrar.
type Allocator struct {
	mu        sync.Mutex
	be        backend
	registrar api.RegionRegistrar
	live      map[*Region]struct{}
	byKind    map[api.RegionKind]int64
	liveBytes int64
	log       zerolog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRegistrar installs the external registration hook.
func WithRegistrar(r api.RegionRegistrar) Option {
	return func(a *Allocator) { a.registrar = r }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Allocator) { a.log = l }
}

// WithHeap forces the portable heap backend.
func WithHeap() Option {
	return func(a *Allocator) { a.be = heapBackend{} }
}

// NewAllocator creates an allocator using the platform backend.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		be:     newPlatformBackend(),
		live:   make(map[*Region]struct{}),
		byKind: make(map[api.RegionKind]int64),
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Alloc returns a zero-initialized region of at least size bytes.
func (a *Allocator) Alloc(kind api.RegionKind, size, node int) (*Region, error) {
	if size <= 0 {
		return nil, api.NewError(api.ErrCodeResource, "region size must be positive").
			WithContext("size", size).WithContext("kind", kind.String())
	}
	buf, err := a.be.Map(roundUp(size))
	if err != nil {
		return nil, api.NewError(api.ErrCodeResource, err.Error()).
			WithContext("size", size).WithContext("node", node)
	}
	r := &Region{kind: kind, node: node, buf: buf[:size], mapped: buf, owner: a}
	a.mu.Lock()
	a.live[r] = struct{}{}
	a.byKind[kind] += int64(len(buf))
	a.liveBytes += int64(len(buf))
	a.mu.Unlock()
	if a.registrar != nil {
		a.registrar.Register(kind, r.Addr(), r.Addr()+uintptr(len(buf)))
	}
	a.log.Debug().Str("kind", kind.String()).Int("node", node).Int("size", size).Msg("region allocated")
	return r, nil
}

// Plain allocates ordinary shared memory.
func (a *Allocator) Plain(size, node int) (*Region, error) {
	return a.Alloc(api.RegionPlain, size, node)
}

// NonTemporal allocates a streaming-store region.
func (a *Allocator) NonTemporal(size, node int) (*Region, error) {
	return a.Alloc(api.RegionNonTemporal, size, node)
}

// ReleaseOrdered allocates a release-store region.
func (a *Allocator) ReleaseOrdered(size, node int) (*Region, error) {
	return a.Alloc(api.RegionReleaseOrdered, size, node)
}

// Float64s allocates n float64 words in a region of the given kind.
func (a *Allocator) Float64s(kind api.RegionKind, n, node int) ([]float64, error) {
	r, err := a.Alloc(kind, n*8, node)
	if err != nil {
		return nil, err
	}
	return r.Float64s(), nil
}

// Uint64s allocates n unsigned words in a region of the given kind.
func (a *Allocator) Uint64s(kind api.RegionKind, n, node int) ([]uint64, error) {
	r, err := a.Alloc(kind, n*8, node)
	if err != nil {
		return nil, err
	}
	return r.Uint64s(), nil
}

// Stats returns a snapshot of live allocations.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	by := make(map[api.RegionKind]int64, len(a.byKind))
	for k, v := range a.byKind {
		by[k] = v
	}
	return Stats{Live: len(a.live), LiveByte: a.liveBytes, ByKind: by}
}

// Close releases every live region. Callers must have joined all workers.
func (a *Allocator) Close() {
	a.mu.Lock()
	regions := make([]*Region, 0, len(a.live))
	for r := range a.live {
		regions = append(regions, r)
	}
	a.mu.Unlock()
	for _, r := range regions {
		r.Release()
	}
}

func (a *Allocator) release(r *Region) {
	a.mu.Lock()
	if _, ok := a.live[r]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.live, r)
	size := int64(len(r.mapped))
	a.byKind[r.kind] -= size
	a.liveBytes -= size
	a.mu.Unlock()
	if err := a.be.Unmap(r.mapped); err != nil {
		a.log.Warn().Err(err).Str("kind", r.kind.String()).Msg("region unmap failed")
	}
	r.buf, r.mapped = nil, nil
}
