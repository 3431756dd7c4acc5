//go:build linux
// +build linux

// File: pool/backend_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux backend: private anonymous mappings, page aligned and zero filled.

package pool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type mmapBackend struct{}

func newPlatformBackend() backend { return mmapBackend{} }

func (mmapBackend) Map(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

func (mmapBackend) Unmap(b []byte) error {
	return unix.Munmap(b)
}
