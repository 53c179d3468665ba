// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Media buffer pool: slot acquisition, fill tracking and release over caller memory.

package pool

import (
	"unsafe"

	"github.com/google/uuid"

	"github.com/momentics/mediabuf/api"
)

// Memory is the caller-supplied backing store of a pool.
type Memory struct {
	// MetaData holds the slot records followed by the per-buffer metadata.
	// Must be at least Config.MetaDataMemSize bytes.
	MetaData []byte
	// Buffers holds the payloads.
	Buffers []byte
	// SlotOffsets optionally gives the payload offset of every slot inside
	// Buffers (MaxBufNum entries). Alignment is then the caller's business.
	// When nil the pool lays slots out as GetSize assumes.
	SlotOffsets []int
}

// Pool is a fixed array of slots over two memory regions.
type Pool struct {
	id uuid.UUID

	bufSize      int
	metaDataSize int
	bufNum       int
	maxBufNum    int
	freeBufNum   int
	fillLevel    int
	index        int
	poolSize     int
	flags        api.PoolFlags

	highWatermark int
	lowWatermark  int

	records []byte // MaxBufNum*RecordSize
	meta    []byte // MaxBufNum*MetaDataSize
	buffers []byte

	callbacks Registry
}

// Create validates cfg, lays the metadata region out as
// [slot records][per-buffer metadata] and assigns every slot its payload.
func Create(cfg *Config, mem Memory) (*Pool, error) {
	if cfg == nil {
		return nil, api.ErrInvalidParameter.WithContext("reason", "nil config")
	}
	if mem.MetaData == nil || mem.Buffers == nil {
		return nil, api.ErrInvalidParameter.WithContext("reason", "nil memory region")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(mem.MetaData) < cfg.MetaDataMemSize {
		return nil, api.ErrInvalidParameter.
			WithContext("metaDataMem", len(mem.MetaData)).
			WithContext("required", cfg.MetaDataMemSize)
	}

	offsets, err := slotOffsets(cfg, mem)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		id:            uuid.New(),
		bufSize:       cfg.BufSize,
		metaDataSize:  cfg.MetaDataSize,
		bufNum:        cfg.BufNum,
		freeBufNum:    cfg.BufNum,
		maxBufNum:     cfg.MaxBufNum,
		poolSize:      cfg.BufNum * cfg.BufSize,
		flags:         cfg.Flags,
		highWatermark: cfg.HighWatermark,
		lowWatermark:  cfg.LowWatermark,
		buffers:       mem.Buffers,
	}

	region := mem.MetaData[:cfg.MetaDataMemSize]
	clear(region)
	recBytes := cfg.MaxBufNum * RecordSize
	p.records = region[:recBytes:recBytes]
	p.meta = region[recBytes:]

	for i := 0; i < p.maxBufNum; i++ {
		r := p.slot(i)
		r.setBaseOffset(offsets[i])
		r.setBaseSize(p.bufSize)
		if p.metaDataSize != 0 {
			r.setMetaOffset(uint64(i * p.metaDataSize))
		} else {
			r.setMetaOffset(noMeta)
		}
		r.init()
	}
	return p, nil
}

// slotOffsets returns the payload offset of every slot.
func slotOffsets(cfg *Config, mem Memory) ([]int, error) {
	offsets := make([]int, cfg.MaxBufNum)
	if mem.SlotOffsets != nil {
		if len(mem.SlotOffsets) < cfg.MaxBufNum {
			return nil, api.ErrInvalidParameter.WithContext("slotOffsets", len(mem.SlotOffsets))
		}
		for i := range offsets {
			off := mem.SlotOffsets[i]
			if off < 0 || off+cfg.BufSize > len(mem.Buffers) {
				return nil, api.ErrInvalidParameter.WithContext("slot", i).WithContext("offset", off)
			}
			offsets[i] = off
		}
		return offsets, nil
	}

	if len(mem.Buffers) < cfg.BufMemSize {
		return nil, api.ErrInvalidParameter.
			WithContext("bufMem", len(mem.Buffers)).
			WithContext("required", cfg.BufMemSize)
	}
	if cfg.MaxBufNum == 0 {
		return offsets, nil
	}
	align := uintptr(cfg.align())
	base := uintptr(unsafe.Pointer(unsafe.SliceData(mem.Buffers)))
	if cfg.Flags.RingMode() {
		front := int(alignUp(base, align) - base)
		for i := range offsets {
			offsets[i] = front + i*cfg.BufSize
		}
	} else {
		stride := cfg.BufSize + cfg.BufAlign
		for i := range offsets {
			start := base + uintptr(i*stride)
			offsets[i] = int(alignUp(start, align) - base)
		}
	}
	return offsets, nil
}

// Destroy invalidates the pool. The memory regions stay with the caller.
func (p *Pool) Destroy() error {
	if p == nil {
		return api.ErrInvalidHandle
	}
	*p = Pool{}
	return nil
}

// Reset releases every slot without tearing the pool down.
func (p *Pool) Reset() error {
	if !p.alive() {
		return api.ErrInvalidHandle
	}
	p.freeBufNum = p.bufNum
	p.fillLevel = 0
	p.index = 0
	for i := 0; i < p.maxBufNum; i++ {
		p.slot(i).init()
	}
	return nil
}

// GetBuffer acquires a free slot with lock count 1. It never blocks and
// reports api.ErrNotAvailable when nothing can be acquired right now.
func (p *Pool) GetBuffer() (api.Handle, error) {
	if !p.alive() {
		return api.NilHandle, api.ErrInvalidHandle
	}
	if p.freeBufNum == 0 {
		return api.NilHandle, api.ErrNotAvailable
	}
	// at least one active slot is free, so the scan terminates
	for {
		i := p.index
		r := p.slot(i)
		if r.lockCount() == 0 {
			p.freeBufNum--
			r.setLockCount(1)
			r.setFlags(r.flags() | slotOwned)
			p.advance()
			return p.handle(i), nil
		}
		// ring mode never hands out a slot ahead of a locked one
		if p.flags.RingMode() {
			return api.NilHandle, api.ErrNotAvailable
		}
		p.advance()
	}
}

func (p *Pool) advance() {
	p.index++
	if p.index >= p.bufNum {
		p.index = 0
	}
}

// BufferFilled accounts one more full buffer and notifies the callbacks.
// Watermark edges fire only when the fill level lands exactly on them.
func (p *Pool) BufferFilled(h api.Handle) error {
	if _, err := p.lookup(h); err != nil {
		return err
	}
	p.fillLevel++
	if p.fillLevel > p.bufNum {
		panic("pool: fill level exceeds buffer count")
	}

	p.fire(api.FullBufferAdded, h)
	if p.highWatermark != 0 && p.fillLevel == p.highWatermark {
		p.fire(api.HighWatermarkEntered, h)
	}
	if p.lowWatermark != 0 && p.fillLevel == p.lowWatermark+1 {
		p.fire(api.LowWatermarkLeft, h)
	}
	return nil
}

// FreeBuffer returns a held slot to the free set regardless of its lock count.
func (p *Pool) FreeBuffer(h api.Handle) error {
	r, err := p.lookup(h)
	if err != nil {
		return err
	}
	if r.lockCount() == 0 {
		// already free; counting it twice would break freeBufNum
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	r.setLockCount(0)
	p.freeBufNum++

	if r.isFull() {
		if p.fillLevel > 0 {
			p.fillLevel--
		}
		r.setFull(false)
	}

	p.fire(api.EmptyBufferAdded, h)
	if p.lowWatermark != 0 && p.fillLevel == p.lowWatermark {
		p.fire(api.LowWatermarkEntered, h)
	}
	if p.highWatermark != 0 && p.fillLevel == p.highWatermark-1 {
		p.fire(api.HighWatermarkLeft, h)
	}
	return nil
}

// LockBuffer adds a holder to an already acquired slot.
func (p *Pool) LockBuffer(h api.Handle) error {
	r, err := p.lookup(h)
	if err != nil {
		return err
	}
	if r.lockCount() == 0 {
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	r.setLockCount(r.lockCount() + 1)
	return nil
}

// UnlockBuffer drops one holder; the last one frees the slot.
func (p *Pool) UnlockBuffer(h api.Handle) error {
	r, err := p.lookup(h)
	if err != nil {
		return err
	}
	n := r.lockCount()
	if n == 0 {
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	if n == 1 {
		return p.FreeBuffer(h)
	}
	r.setLockCount(n - 1)
	return nil
}

// SetFull marks or clears the full flag of a slot. Used by queues before they
// hand a buffer to BufferFilled.
func (p *Pool) SetFull(h api.Handle, full bool) error {
	r, err := p.lookup(h)
	if err != nil {
		return err
	}
	r.setFull(full)
	return nil
}

// LockCount returns the number of holders of a slot.
func (p *Pool) LockCount(h api.Handle) (uint32, error) {
	r, err := p.lookup(h)
	if err != nil {
		return 0, err
	}
	return r.lockCount(), nil
}

// Bytes returns the payload of a slot. The slice aliases pool memory.
func (p *Pool) Bytes(h api.Handle) ([]byte, error) {
	r, err := p.lookup(h)
	if err != nil {
		return nil, err
	}
	off, n := r.baseOffset(), r.baseSize()
	return p.buffers[off : off+n : off+n], nil
}

// MetaData returns the per-buffer metadata of a slot, nil when the pool
// was created without metadata.
func (p *Pool) MetaData(h api.Handle) ([]byte, error) {
	r, err := p.lookup(h)
	if err != nil {
		return nil, err
	}
	off := r.metaOffset()
	if off == noMeta {
		return nil, nil
	}
	start := int(off)
	end := start + p.metaDataSize
	return p.meta[start:end:end], nil
}

// Buffer returns a snapshot of a slot record.
func (p *Pool) Buffer(h api.Handle) (api.BufferInfo, error) {
	r, err := p.lookup(h)
	if err != nil {
		return api.BufferInfo{}, err
	}
	return p.info(h.Slot, r), nil
}

// Slots returns snapshots of all MaxBufNum slot records.
func (p *Pool) Slots() []api.BufferInfo {
	if !p.alive() {
		return nil
	}
	out := make([]api.BufferInfo, p.maxBufNum)
	for i := range out {
		out[i] = p.info(i, p.slot(i))
	}
	return out
}

func (p *Pool) info(i int, r record) api.BufferInfo {
	return api.BufferInfo{
		Slot:       i,
		BaseOffset: r.baseOffset(),
		BaseSize:   r.baseSize(),
		LockCount:  r.lockCount(),
		IsFull:     r.isFull(),
		Owned:      r.flags()&slotOwned != 0,
		HasMeta:    r.metaOffset() != noMeta,
	}
}

// Handle returns the handle of slot i.
func (p *Pool) Handle(i int) (api.Handle, error) {
	if !p.alive() {
		return api.NilHandle, api.ErrInvalidHandle
	}
	if i < 0 || i >= p.maxBufNum {
		return api.NilHandle, api.ErrInvalidHandle.WithContext("slot", i)
	}
	return p.handle(i), nil
}

func (p *Pool) ID() uuid.UUID { return p.id }
func (p *Pool) BufNum() int { return p.bufNum }
func (p *Pool) MaxBufNum() int { return p.maxBufNum }
func (p *Pool) FreeBufNum() int { return p.freeBufNum }
func (p *Pool) FillLevel() int { return p.fillLevel }
func (p *Pool) Index() int { return p.index }
func (p *Pool) BufSize() int { return p.bufSize }
func (p *Pool) PoolSize() int { return p.poolSize }
func (p *Pool) Flags() api.PoolFlags { return p.flags }

// LowWatermark and HighWatermark return the configured thresholds, 0 when disabled.
func (p *Pool) LowWatermark() int { return p.lowWatermark }
func (p *Pool) HighWatermark() int { return p.highWatermark }

// Owns reports whether h was issued by this pool.
func (p *Pool) Owns(h api.Handle) bool {
	return p.alive() && h.Pool == p.id && h.Slot >= 0 && h.Slot < p.maxBufNum
}

// Valid reports whether the pool is created and not destroyed.
func (p *Pool) Valid() bool { return p.alive() }

func (p *Pool) alive() bool {
	return p != nil && p.id != uuid.Nil
}

func (p *Pool) handle(i int) api.Handle {
	return api.Handle{Pool: p.id, Slot: i}
}

func (p *Pool) slot(i int) record {
	off := i * RecordSize
	return record(p.records[off : off+RecordSize : off+RecordSize])
}

func (p *Pool) lookup(h api.Handle) (record, error) {
	if !p.alive() {
		return nil, api.ErrInvalidHandle
	}
	if !p.Owns(h) {
		return nil, api.ErrInvalidHandle.WithContext("buffer", h.String())
	}
	return p.slot(h.Slot), nil
}
