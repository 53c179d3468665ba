//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux probes describing the memory the pool arenas are mapped from.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return unix.Getpagesize()
	})
	dp.RegisterProbe("platform.mmap_arena", func() any {
		return true
	})
}
