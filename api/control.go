// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control manages dynamic config and runtime metrics of a mediabuf instance.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	OnReload(fn func())
	SetMetric(key string, value any)
	AddMetric(key string, delta int64) int64
	RegisterDebugProbe(name string, fn func() any)
}

// GracefulShutdown is implemented by components that own goroutines or memory.
type GracefulShutdown interface {
	Shutdown() error
}
