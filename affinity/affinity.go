// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// CPU pinning for the goroutines that drain notifications. Platform-specific
// implementations live in affinity_linux.go and affinity_other.go.

package affinity

import "runtime"

// SetAffinity pins the current OS thread to cpuID. The caller should hold
// the thread with runtime.LockOSThread, otherwise the pinning may end up on
// a thread the goroutine later leaves.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Pin locks the calling goroutine to its thread and pins that thread. The
// goroutine should exit without unlocking, so the runtime retires the pinned
// thread instead of reusing it.
func Pin(cpuID int) error {
	runtime.LockOSThread()
	if err := SetAffinity(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}
