// File: pool/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Slot records stored in the metadata region as fixed little-endian views.

package pool

import "encoding/binary"

// RecordSize is the size in bytes of one slot record in the metadata region.
const RecordSize = 32

// Record layout.
const (
	recBaseOffset = 0  // u64 payload offset in the buffer region
	recBaseSize   = 8  // u32 payload size
	recLockCount  = 12 // u32 lock count
	recFlags      = 16 // u32 slot flags
	recMetaOffset = 24 // u64 metadata offset, noMeta when absent
)

const (
	slotFull uint32 = 1 << iota
	slotOwned
)

const noMeta = ^uint64(0)

// record is a RecordSize view into the metadata region.
type record []byte

func (r record) baseOffset() int { return int(binary.LittleEndian.Uint64(r[recBaseOffset:])) }
func (r record) setBaseOffset(v int) { binary.LittleEndian.PutUint64(r[recBaseOffset:], uint64(v)) }
func (r record) baseSize() int { return int(binary.LittleEndian.Uint32(r[recBaseSize:])) }
func (r record) setBaseSize(v int) { binary.LittleEndian.PutUint32(r[recBaseSize:], uint32(v)) }
func (r record) lockCount() uint32 { return binary.LittleEndian.Uint32(r[recLockCount:]) }
func (r record) setLockCount(v uint32) { binary.LittleEndian.PutUint32(r[recLockCount:], v) }
func (r record) flags() uint32 { return binary.LittleEndian.Uint32(r[recFlags:]) }
func (r record) setFlags(v uint32) { binary.LittleEndian.PutUint32(r[recFlags:], v) }
func (r record) metaOffset() uint64 { return binary.LittleEndian.Uint64(r[recMetaOffset:]) }
func (r record) setMetaOffset(v uint64) { binary.LittleEndian.PutUint64(r[recMetaOffset:], v) }

func (r record) isFull() bool { return r.flags()&slotFull != 0 }

func (r record) setFull(full bool) {
	f := r.flags()
	if full {
		f |= slotFull
	} else {
		f &^= slotFull
	}
	r.setFlags(f)
}

// init puts the slot into the unlocked, empty, unowned state.
func (r record) init() {
	r.setLockCount(0)
	r.setFlags(0)
}
