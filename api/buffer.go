// Package api
// Author: momentics
//
// Slot handles and buffer descriptors shared by pool, queue and collaborators.
//
// A buffer is never addressed by pointer. Collaborators hold a Handle, the
// pair (pool identity, slot index), and resolve it through the owning pool.

package api

import (
	"fmt"

	"github.com/google/uuid"
)

// Handle identifies one slot of one pool.
type Handle struct {
	Pool uuid.UUID
	Slot int
}

// NilHandle is returned when no buffer could be acquired.
var NilHandle = Handle{}

// Valid reports whether the handle was issued by some pool.
func (h Handle) Valid() bool {
	return h.Pool != uuid.Nil
}

func (h Handle) String() string {
	if !h.Valid() {
		return "buf(nil)"
	}
	return fmt.Sprintf("buf(%s#%d)", h.Pool.String()[:8], h.Slot)
}

// BufferInfo is a read-only snapshot of one slot record.
type BufferInfo struct {
	Slot       int
	BaseOffset int    // offset of the payload inside the buffer memory region
	BaseSize   int    // payload length in bytes
	LockCount  uint32 // 0 means free
	IsFull     bool
	Owned      bool // set once the slot has been handed out by the pool
	HasMeta    bool
}

// Free reports whether nobody holds the slot.
func (b BufferInfo) Free() bool { return b.LockCount == 0 }
