// Package api
// Author: momentics
//
// Debug probes for a running mediabuf instance: slot tables, relay
// backlog, monitor clients and platform facts, dumped on demand.

package api

// Debug is the probe registry behind Control.Stats "debug." keys.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)
}
