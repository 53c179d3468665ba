//go:build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>

package affinity

import "github.com/momentics/mediabuf/api"

func setAffinityPlatform(cpuID int) error {
	return api.ErrNotSupported.WithContext("cpu", cpuID)
}

// Current is not supported off Linux.
func Current() ([]int, error) {
	return nil, api.ErrNotSupported
}
