// Package queue
// Author: momentics <momentics@gmail.com>
//
// FIFO of full media buffers on top of pool.Pool.
//
// Queue owns its pool and keeps the filled-but-unconsumed buffers in a circular
// index stored in caller memory, together with fill level statistics (maximum
// and a 1/16 exponential moving average in 16.16 fixed point). Shared puts
// several queues over one external pool so one producer can fan a buffer out to
// many consumers. Sync serializes a Queue behind a mutex and adds
// context-aware waits; Queue and Shared themselves never lock and never block.
package queue
