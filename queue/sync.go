// File: queue/sync.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sync serializes a Queue behind one mutex and lets goroutines wait for
// buffers. The wake-ups come from the pool's own notifications.

package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
)

// Sync guards a Queue for use from several goroutines.
type Sync struct {
	mu sync.Mutex
	q  *Queue

	cbID api.CallbackID

	// closed and replaced whenever a buffer of that kind appears
	emptyCh chan struct{}
	fullCh  chan struct{}
}

// NewSync wraps q. It takes one callback entry of the pool until Close.
func NewSync(q *Queue) (*Sync, error) {
	s := &Sync{
		q:       q,
		emptyCh: make(chan struct{}),
		fullCh:  make(chan struct{}),
	}
	id, err := q.RegisterCb(s.onEvent, nil)
	if err != nil {
		return nil, err
	}
	s.cbID = id
	return s, nil
}

// onEvent runs inside a queue operation, with s.mu held.
func (s *Sync) onEvent(ev api.Event, _ any, _ api.Handle) {
	switch ev {
	case api.EmptyBufferAdded:
		close(s.emptyCh)
		s.emptyCh = make(chan struct{})
	case api.FullBufferAdded:
		close(s.fullCh)
		s.fullCh = make(chan struct{})
	}
}

func (s *Sync) wakeAll() {
	close(s.emptyCh)
	s.emptyCh = make(chan struct{})
	close(s.fullCh)
	s.fullCh = make(chan struct{})
}

// Close releases the callback entry. Blocked waiters are woken and see
// api.ErrInvalidHandle once the queue is destroyed.
func (s *Sync) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.q.DeregisterCb(s.cbID)
	s.wakeAll()
	return err
}

// Do runs fn with the lock held. fn must not call other Sync methods.
func (s *Sync) Do(fn func(q *Queue) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.q)
}

// WaitEmptyBuffer acquires a free buffer, blocking until one is released or
// ctx is done.
func (s *Sync) WaitEmptyBuffer(ctx context.Context) (api.Handle, error) {
	return s.wait(ctx, (*Queue).GetEmptyBuffer, func() chan struct{} { return s.emptyCh })
}

// WaitFullBuffer dequeues the oldest full buffer, blocking until one is
// enqueued or ctx is done.
func (s *Sync) WaitFullBuffer(ctx context.Context) (api.Handle, error) {
	return s.wait(ctx, (*Queue).GetFullBuffer, func() chan struct{} { return s.fullCh })
}

func (s *Sync) wait(ctx context.Context, get func(*Queue) (api.Handle, error), ch func() chan struct{}) (api.Handle, error) {
	for {
		s.mu.Lock()
		h, err := get(s.q)
		if err == nil || !errors.Is(err, api.ErrNotAvailable) {
			s.mu.Unlock()
			return h, err
		}
		wake := ch()
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return api.NilHandle, ctx.Err()
		case <-wake:
		}
	}
}

func (s *Sync) GetEmptyBuffer() (api.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.GetEmptyBuffer()
}

func (s *Sync) PutFullBuffer(h api.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PutFullBuffer(h)
}

func (s *Sync) GetFullBuffer() (api.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.GetFullBuffer()
}

func (s *Sync) LockBuffer(h api.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.LockBuffer(h)
}

func (s *Sync) ReleaseBuffer(h api.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.ReleaseBuffer(h)
}

// Flush drains the queue; producers waiting for space are woken.
func (s *Sync) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Flush()
}

// Reset bypasses the release path, so waiters are woken by hand.
func (s *Sync) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.q.Reset()
	s.wakeAll()
	return err
}

func (s *Sync) GetStats() (api.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.GetStats()
}

func (s *Sync) SetParameter(id api.ParamID, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SetParameter(id, value)
}

func (s *Sync) GetParameter(id api.ParamID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.GetParameter(id)
}

// RegisterCb adds a callback. It runs with the Sync lock held.
func (s *Sync) RegisterCb(fn api.NotifyFunc, userCtx any) (api.CallbackID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.RegisterCb(fn, userCtx)
}

func (s *Sync) DeregisterCb(id api.CallbackID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DeregisterCb(id)
}

func (s *Sync) FullBuffersAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.FullBuffersAvailable()
}

// Bytes returns the payload of a buffer the caller holds.
func (s *Sync) Bytes(h api.Handle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Pool().Bytes(h)
}

// Slots snapshots every slot record.
func (s *Sync) Slots() []api.BufferInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Pool().Slots()
}

// Pool returns the pool. Callers must go through Do to touch it.
func (s *Sync) Pool() *pool.Pool { return s.q.Pool() }
