// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity, reference-counted media buffer pool over caller-supplied memory.
// Slot records and per-buffer metadata live in the metadata region, payloads in the
// buffer region; the pool never allocates or frees either of them.
// Acquire is non-blocking: ring mode hands slots out in strict rotation, general
// mode scans past locked slots. Fill level transitions raise watermark notifications
// to a small fixed table of callbacks.
//
// A Pool is not safe for concurrent use. Callers serialize access externally
// (see queue.Sync) and callbacks must not re-enter the pool.
// See config.go, pool.go, notify.go for implementation details.
package pool
