// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration control and debug introspection for
// mediabuf pools and queues.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload listeners
//   - Gauges and counters published by queue bindings
//   - Named debug probes dumped on demand
package control
