// File: queue/index.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Circular slot index kept in caller memory.

package queue

import "encoding/binary"

// IndexEntrySize is the size in bytes of one index entry.
const IndexEntrySize = 4

// indexRing stores slot+1 per entry; 0 marks an empty entry.
type indexRing []byte

func newIndexRing(mem []byte, entries int) indexRing {
	n := entries * IndexEntrySize
	r := indexRing(mem[:n:n])
	r.reset()
	return r
}

func (r indexRing) get(i int) (int, bool) {
	v := binary.LittleEndian.Uint32(r[i*IndexEntrySize:])
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}

func (r indexRing) set(i, slot int) {
	binary.LittleEndian.PutUint32(r[i*IndexEntrySize:], uint32(slot+1))
}

func (r indexRing) clear(i int) {
	binary.LittleEndian.PutUint32(r[i*IndexEntrySize:], 0)
}

func (r indexRing) reset() {
	clear(r)
}
