// File: queue/shared.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Queues sharing one external pool. A producer fills a buffer once and fans
// it out to several Shared queues; every queue holds its own lock on the
// buffer, so the slot returns to the pool after the last consumer is done.

package queue

import (
	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
)

// Shared is a FIFO of full buffers over an external pool. Watermarks,
// callbacks and statistics are per queue and follow the queue's own fill
// level, the number of buffers it currently holds.
type Shared struct {
	pool  *pool.Pool
	index indexRing

	head          int
	tail          int
	fullBufsAvail int

	lowWatermark  int
	highWatermark int
	callbacks     pool.Registry

	stats fillStats
}

// SharedIndexSize is the index memory CreateShared needs for p.
func SharedIndexSize(p *pool.Pool) int {
	return p.MaxBufNum() * IndexEntrySize
}

// CreateShared builds a queue over p. indexMem holds the circular index and
// must be at least SharedIndexSize(p) bytes. Watermarks start as the pool's.
func CreateShared(indexMem []byte, p *pool.Pool) (*Shared, error) {
	if !p.Valid() {
		return nil, api.ErrInvalidHandle
	}
	if indexMem == nil {
		return nil, api.ErrInvalidParameter.WithContext("reason", "nil index memory")
	}
	if n := SharedIndexSize(p); len(indexMem) < n {
		return nil, api.ErrInvalidParameter.WithContext("indexMem", len(indexMem)).WithContext("required", n)
	}
	return &Shared{
		pool:          p,
		index:         newIndexRing(indexMem, p.MaxBufNum()),
		lowWatermark:  p.LowWatermark(),
		highWatermark: p.HighWatermark(),
	}, nil
}

// Publish marks a producer's buffer full, hands it to every queue that has
// room and drops the producer's lock. It returns how many queues took the
// buffer; with none the buffer goes straight back to the pool.
func Publish(p *pool.Pool, h api.Handle, queues ...*Shared) (int, error) {
	if err := p.SetFull(h, true); err != nil {
		return 0, err
	}
	if err := p.BufferFilled(h); err != nil {
		return 0, err
	}
	accepted := 0
	for _, q := range queues {
		if err := q.PutFullBuffer(h); err == nil {
			accepted++
		}
	}
	return accepted, p.UnlockBuffer(h)
}

// Destroy invalidates the queue. The external pool is left alone.
func (q *Shared) Destroy() error {
	if q == nil {
		return api.ErrInvalidHandle
	}
	*q = Shared{}
	return nil
}

// Pool returns the external pool.
func (q *Shared) Pool() *pool.Pool { return q.pool }

// GetEmptyBuffer acquires a free buffer from the external pool.
func (q *Shared) GetEmptyBuffer() (api.Handle, error) {
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

// PutFullBuffer enqueues a buffer and takes a queue lock on it. The producer
// has already reported it to the pool with BufferFilled (see Publish) and
// drops its own lock with PutFullBufferDone once all queues have it.
func (q *Shared) PutFullBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	if q.IsFull() {
		return api.ErrNotAvailable
	}
	if err := q.pool.LockBuffer(h); err != nil {
		return err
	}
	q.insertInHead(h)
	_ = q.pool.SetFull(h, true)

	q.stats.observeMax(q.fullBufsAvail)
	q.stats.updateAvg(q.fullBufsAvail)
	return nil
}

func (q *Shared) insertInHead(h api.Handle) {
	if q.fullBufsAvail >= q.pool.FillLevel() {
		panic("queue: buffer queued without BufferFilled")
	}
	if _, used := q.index.get(q.head); used {
		panic("queue: head entry occupied")
	}
	q.index.set(q.head, h.Slot)
	q.head++
	if q.head >= q.pool.BufNum() {
		q.head = 0
	}
	q.fullBufsAvail++

	q.callbacks.Fire(api.FullBufferAdded, h)
	if q.highWatermark != 0 && q.fullBufsAvail == q.highWatermark {
		q.callbacks.Fire(api.HighWatermarkEntered, h)
	}
	if q.lowWatermark != 0 && q.fullBufsAvail == q.lowWatermark+1 {
		q.callbacks.Fire(api.LowWatermarkLeft, h)
	}
}

// PutFullBufferDone drops the producer's lock after the buffer was queued.
func (q *Shared) PutFullBufferDone(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.release(h)
}

// GetFullBuffer dequeues the oldest buffer. The queue's lock moves to the
// caller, who gives it back with ReleaseBuffer.
func (q *Shared) GetFullBuffer() (api.Handle, error) {
	if !q.alive() {
		return api.NilHandle, api.ErrInvalidHandle
	}
	if q.fullBufsAvail == 0 {
		return api.NilHandle, api.ErrNotAvailable
	}
	h := q.getFromTail()
	q.stats.updateAvg(q.fullBufsAvail)
	return h, nil
}

func (q *Shared) getFromTail() api.Handle {
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
	q.callbacks.Fire(api.FullBufferRemoved, h)
	if q.lowWatermark != 0 && q.fullBufsAvail == q.lowWatermark {
		q.callbacks.Fire(api.LowWatermarkEntered, h)
	}
	if q.highWatermark != 0 && q.fullBufsAvail == q.highWatermark-1 {
		q.callbacks.Fire(api.HighWatermarkLeft, h)
	}
	return h
}

// release drops one lock. The queue's callbacks see EmptyBufferAdded when
// the last lock goes, before the pool frees the slot.
func (q *Shared) release(h api.Handle) error {
	n, err := q.pool.LockCount(h)
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrNotLocked.WithContext("buffer", h.String())
	}
	if n == 1 {
		q.callbacks.Fire(api.EmptyBufferAdded, h)
	}
	return q.pool.UnlockBuffer(h)
}

// LockBuffer adds a holder.
func (q *Shared) LockBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.pool.LockBuffer(h)
}

// ReleaseBuffer drops one holder and samples the average fill level.
func (q *Shared) ReleaseBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	if err := q.release(h); err != nil {
		return err
	}
	q.stats.updateAvg(q.fullBufsAvail)
	return nil
}

// UnlockBuffer drops one holder without sampling statistics.
func (q *Shared) UnlockBuffer(h api.Handle) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.release(h)
}

// Flush drops this queue's lock on every queued buffer. Buffers still locked
// by other queues or consumers stay out of the pool until they are released.
func (q *Shared) Flush() error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	for q.fullBufsAvail > 0 {
		h, err := q.GetFullBuffer()
		if err != nil {
			return err
		}
		if err := q.ReleaseBuffer(h); err != nil {
			return err
		}
	}
	q.stats.reset()
	return nil
}

// Reset clears the queue. The external pool is not reset.
func (q *Shared) Reset() error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	q.fullBufsAvail = 0
	q.stats.reset()
	q.index.reset()
	q.head = 0
	q.tail = 0
	return nil
}

// GetStats returns the queue's statistics; CurrFillLevel is the number of
// buffers this queue holds.
func (q *Shared) GetStats() (api.QueueStats, error) {
	if !q.alive() {
		return api.QueueStats{}, api.ErrInvalidHandle
	}
	return q.stats.snapshot(q.fullBufsAvail, q.lowWatermark, q.highWatermark), nil
}

// SetParameter sets a watermark of this queue only.
func (q *Shared) SetParameter(id api.ParamID, value int) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	if value < 0 || value > api.MaxWatermark {
		return api.ErrInvalidParameter.WithContext("watermark", value)
	}
	switch id {
	case api.ParamHighWatermark:
		q.highWatermark = value
	case api.ParamLowWatermark:
		q.lowWatermark = value
	default:
		return api.ErrInvalidParameter.WithContext("param", int(id))
	}
	return nil
}

// GetParameter reads a watermark of this queue.
func (q *Shared) GetParameter(id api.ParamID) (int, error) {
	if !q.alive() {
		return 0, api.ErrInvalidHandle
	}
	switch id {
	case api.ParamHighWatermark:
		return q.highWatermark, nil
	case api.ParamLowWatermark:
		return q.lowWatermark, nil
	default:
		return 0, api.ErrInvalidParameter.WithContext("param", int(id))
	}
}

// RegisterCb adds a callback to this queue's own table.
func (q *Shared) RegisterCb(fn api.NotifyFunc, userCtx any) (api.CallbackID, error) {
	if !q.alive() {
		return 0, api.ErrInvalidHandle
	}
	return q.callbacks.Register(fn, userCtx)
}

// DeregisterCb removes a callback from this queue's own table.
func (q *Shared) DeregisterCb(id api.CallbackID) error {
	if !q.alive() {
		return api.ErrInvalidHandle
	}
	return q.callbacks.Deregister(id)
}

// FullBuffersAvailable returns the number of buffers this queue holds.
func (q *Shared) FullBuffersAvailable() int { return q.fullBufsAvail }

// IsFull reports whether the index holds BufNum entries.
func (q *Shared) IsFull() bool {
	return q.alive() && q.fullBufsAvail >= q.pool.BufNum()
}

func (q *Shared) alive() bool {
	return q != nil && q.pool.Valid()
}
