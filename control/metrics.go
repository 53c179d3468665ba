// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for pool and queue monitoring.
// Gauges and counters live in one thread-safe map keyed by name.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds gauges set by value and counters bumped by Add.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add bumps an int64 counter. A key holding another type is overwritten.
func (mr *MetricsRegistry) Add(key string, delta int64) int64 {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	n, _ := mr.metrics[key].(int64)
	n += delta
	mr.metrics[key] = n
	mr.updated = time.Now()
	return n
}

// Updated returns the time of the last change, zero if none.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
