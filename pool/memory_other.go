//go:build !linux

// File: pool/memory_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// AllocRegions allocates a metadata region and a buffer region on the Go heap.
func AllocRegions(metaSize, bufSize int) (Memory, func() error, error) {
	mem := Memory{
		MetaData: make([]byte, max(metaSize, 1)),
		Buffers:  make([]byte, max(bufSize, 1)),
	}
	return mem, func() error { return nil }, nil
}
