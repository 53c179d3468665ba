//go:build linux

// File: pool/memory_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux region allocator: anonymous mmap keeps payloads page-aligned and
// outside the Go heap.

package pool

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// AllocRegions maps a metadata region and a buffer region of the given sizes.
func AllocRegions(metaSize, bufSize int) (Memory, func() error, error) {
	meta, err := mapAnon(metaSize)
	if err != nil {
		return Memory{}, nil, fmt.Errorf("pool: map metadata region: %w", err)
	}
	bufs, err := mapAnon(bufSize)
	if err != nil {
		_ = unix.Munmap(meta)
		return Memory{}, nil, fmt.Errorf("pool: map buffer region: %w", err)
	}
	release := func() error {
		return errors.Join(unix.Munmap(bufs), unix.Munmap(meta))
	}
	return Memory{MetaData: meta, Buffers: bufs}, release, nil
}

func mapAnon(n int) ([]byte, error) {
	if n <= 0 {
		// mmap rejects empty mappings
		n = 1
	}
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}
