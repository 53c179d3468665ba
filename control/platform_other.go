//go:build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Probes for platforms where pool arenas live on the Go heap.

package control

import (
	"os"
	"runtime"
)

// RegisterPlatformProbes sets the generic debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return os.Getpagesize()
	})
	dp.RegisterProbe("platform.mmap_arena", func() any {
		return false
	})
}
