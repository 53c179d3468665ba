// File: queue/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer queue: FIFO ordering over the full buffers of an owned pool.

package queue

import (
	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
)

// Queue hands full buffers from producers to consumers in FIFO order.
type Queue struct {
	pool  *pool.Pool
	index indexRing

	head          int
	tail          int
	fullBufsAvail int

	stats fillStats
}

// indexSize is the number of metadata bytes the index needs.
func indexSize(cfg *pool.Config) int {
	return cfg.MaxBufNum * IndexEntrySize
}

// GetSize computes the memory required by Create: the pool sizes plus the
// circular index at the front of the metadata region.
func GetSize(cfg *pool.Config) error {
	if err := pool.GetSize(cfg); err != nil {
		return err
	}
	cfg.MetaDataMemSize += indexSize(cfg)
	return nil
}

// AllocMemory sizes the regions with GetSize and allocates them.
func AllocMemory(cfg *pool.Config) (pool.Memory, func() error, error) {
	if err := GetSize(cfg); err != nil {
		return pool.Memory{}, nil, err
	}
	return pool.AllocRegions(cfg.MetaDataMemSize, cfg.BufMemSize)
}

// Create lays the metadata region out as [index][pool layout] and creates
// the pool over the remainder.
func Create(cfg *pool.Config, mem pool.Memory) (*Queue, error) {
	if cfg == nil {
		return nil, api.ErrInvalidParameter.WithContext("reason", "nil config")
	}
	if mem.MetaData == nil || mem.Buffers == nil {
		return nil, api.ErrInvalidParameter.WithContext("reason", "nil memory region")
	}
	if err := GetSize(cfg); err != nil {
		return nil, err
	}
	n := indexSize(cfg)
	if len(mem.MetaData) < n {
		return nil, api.ErrInvalidParameter.
			WithContext("metaDataMem", len(mem.MetaData)).
			WithContext("required", cfg.MetaDataMemSize)
	}

	q := &Queue{index: newIndexRing(mem.MetaData, cfg.MaxBufNum)}

	poolMem := mem
	poolMem.MetaData = mem.MetaData[n:]
	p, err := pool.Create(cfg, poolMem)
	// pool.Create rewrote the sizes without the index
	cfg.MetaDataMemSize += n
	if err != nil {
		return nil, err
	}
	q.pool = p
	return q, nil
}

// Destroy invalidates the queue and its pool.
func (q *Queue) Destroy() error {
	if q == nil {
		return api.ErrInvalidHandle
	}
	err := q.pool.Destroy()
	*q = Queue{}
	return err
}

// Pool exposes the underlying pool for payload access and introspection.
func (q *Queue) Pool() *pool.Pool {
	return q.pool
}

// GetEmptyBuffer acquires a free buffer for a producer.
func (q *Queue) GetEmptyBuffer() (api.Handle, error) {
	if !q.alive() {
		return api.NilHandle, api.ErrInvalidHandle
	}
	h, err := q.pool.GetBuffer()
	if err != nil {
		return api.NilHandle, err
	}
	_ = q.pool.SetFull(h, false)
	return h, nil
}

// PutFullBuffer enqueues a filled buffer at the head. It reports
// api.ErrNotAvailable when the index already holds BufNum entries.
func (q *Queue) PutFullBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	info, err := q.pool.Buffer(h)
	if err != nil {
		return err
	}
	if q.IsFull() {
		return api.ErrNotAvailable
	}
	if info.LockCount == 0 {
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	if info.IsFull {
		return api.ErrInvalidParameter.WithContext("buffer", h.String()).WithContext("reason", "already queued")
	}

	_ = q.pool.SetFull(h, true)
	q.insertInHead(h)

	q.stats.observeMax(q.pool.FillLevel())
	q.stats.updateAvg(q.pool.FillLevel())
	return nil
}

func (q *Queue) insertInHead(h api.Handle) {
	if _, used := q.index.get(q.head); used {
		panic("queue: head entry occupied")
	}
	q.index.set(q.head, h.Slot)
	q.head++
	if q.head >= q.pool.BufNum() {
		q.head = 0
	}
	q.fullBufsAvail++

	// fires the pool's full and watermark notifications
	if err := q.pool.BufferFilled(h); err != nil {
		panic("queue: " + err.Error())
	}
	if q.fullBufsAvail > q.pool.FillLevel() {
		panic("queue: more queued buffers than full buffers")
	}
}

// GetFullBuffer dequeues the oldest full buffer. Lock state is unchanged:
// the caller releases or locks it afterwards.
func (q *Queue) GetFullBuffer() (api.Handle, error) {
	if !q.alive() {
		return api.NilHandle, api.ErrInvalidHandle
	}
	if q.fullBufsAvail == 0 {
		return api.NilHandle, api.ErrNotAvailable
	}
	return q.getFromTail(), nil
}

func (q *Queue) getFromTail() api.Handle {
	slot, used := q.index.get(q.tail)
	if !used {
		panic("queue: tail entry empty")
	}
	q.index.clear(q.tail)
	q.tail++
	if q.tail >= q.pool.BufNum() {
		q.tail = 0
	}
	q.fullBufsAvail--
	h, err := q.pool.Handle(slot)
	if err != nil {
		panic("queue: " + err.Error())
	}
	return h
}

// LockBuffer adds a holder so the buffer outlives its first reader.
func (q *Queue) LockBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.pool.LockBuffer(h)
}

// ReleaseBuffer drops one holder. The last release frees the buffer back to
// the pool and samples the average fill level.
func (q *Queue) ReleaseBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	n, err := q.pool.LockCount(h)
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	if err := q.pool.UnlockBuffer(h); err != nil {
		return err
	}
	if n == 1 {
		q.stats.updateAvg(q.pool.FillLevel())
	}
	return nil
}

// UnlockBuffer is ReleaseBuffer under the name lock holders use.
func (q *Queue) UnlockBuffer(h api.Handle) error {
	return q.ReleaseBuffer(h)
}

// Flush releases every queued buffer completely, whatever its lock count,
// and clears the statistics. Buffers held outside the queue are untouched.
func (q *Queue) Flush() error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	for q.fullBufsAvail > 0 {
		h := q.getFromTail()
		for {
			n, err := q.pool.LockCount(h)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			if err := q.ReleaseBuffer(h); err != nil {
				return err
			}
		}
	}
	q.stats.reset()
	return nil
}

// Reset returns queue and pool to their freshly created state.
func (q *Queue) Reset() error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	q.fullBufsAvail = 0
	q.stats.reset()
	q.index.reset()
	q.head = 0
	q.tail = 0
	return q.pool.Reset()
}

// GetStats returns the fill level statistics.
func (q *Queue) GetStats() (api.QueueStats, error) {
	if !q.alive() {
		return api.QueueStats{}, api.ErrInvalidHandle
	}
	return q.stats.snapshot(q.pool.FillLevel(), q.pool.LowWatermark(), q.pool.HighWatermark()), nil
}

// SetParameter forwards to the pool.
func (q *Queue) SetParameter(id api.ParamID, value int) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.pool.SetParameter(id, value)
}

// GetParameter forwards to the pool.
func (q *Queue) GetParameter(id api.ParamID) (int, error) {
	if !q.alive() {
		return 0, api.ErrInvalidHandle
	}
	return q.pool.GetParameter(id)
}

// RegisterCb forwards to the pool's callback table.
func (q *Queue) RegisterCb(fn api.NotifyFunc, userCtx any) (api.CallbackID, error) {
	if !q.alive() {
		return 0, api.ErrInvalidHandle
	}
	return q.pool.RegisterCb(fn, userCtx)
}

// DeregisterCb forwards to the pool's callback table.
func (q *Queue) DeregisterCb(id api.CallbackID) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.pool.DeregisterCb(id)
}

// FullBuffersAvailable returns the number of queued full buffers.
func (q *Queue) FullBuffersAvailable() int { return q.fullBufsAvail }

// IsFull reports whether the index holds BufNum entries.
func (q *Queue) IsFull() bool {
	return q.alive() && q.fullBufsAvail >= q.pool.BufNum()
}

// Head and Tail expose the index cursors for diagnostics.
func (q *Queue) Head() int { return q.head }
func (q *Queue) Tail() int { return q.tail }

func (q *Queue) alive() bool {
	return q != nil && q.pool.Valid()
}
