// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency moves buffer notifications off the goroutine that
// drives a pool or queue. Pool callbacks run inside the pool operation and
// must stay short; a Relay queues them and dispatches them in batches to
// handlers that are free to block, log or touch other components.
package concurrency
