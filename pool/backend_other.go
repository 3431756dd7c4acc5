//go:build !linux
// +build !linux

// File: pool/backend_other.go
// Author: momentics <momentics@gmail.com>
//
// Portable fallback backend for platforms without the mmap path.

package pool

func newPlatformBackend() backend { return heapBackend{} }
