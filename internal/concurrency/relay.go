// File: internal/concurrency/relay.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Relay: unbounded notification backlog drained in batches by one goroutine.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/log"
)

// Handler receives relayed notifications in posting order.
type Handler interface {
	HandleNotification(n api.Notification)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(n api.Notification)

func (f HandlerFunc) HandleNotification(n api.Notification) { f(n) }

type entry struct {
	id uint64
	h  Handler
}

// Relay fans notifications out to handlers from its own goroutine. Post never
// blocks, so Notify is safe to register as a pool or queue callback.
type Relay struct {
	mu      sync.Mutex
	backlog *queue.Queue // api.Notification
	wake    chan struct{}

	hmu       sync.Mutex // serializes handler updates
	handlers  atomic.Pointer[[]entry]
	nextID    uint64
	batchSize int

	posted    atomic.Uint64
	delivered atomic.Uint64

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stop    sync.Once
}

// NewRelay creates a relay draining at most batchSize notifications per pass.
func NewRelay(batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = 16
	}
	r := &Relay{
		backlog:   queue.New(),
		wake:      make(chan struct{}, 1),
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	r.handlers.Store(&[]entry{})
	return r
}

// RegisterHandler adds h and returns an id for UnregisterHandler.
func (r *Relay) RegisterHandler(h Handler) uint64 {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	r.nextID++
	old := *r.handlers.Load()
	next := make([]entry, len(old), len(old)+1)
	copy(next, old)
	next = append(next, entry{id: r.nextID, h: h})
	r.handlers.Store(&next)
	return r.nextID
}

// UnregisterHandler removes the handler registered under id.
func (r *Relay) UnregisterHandler(id uint64) {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	old := *r.handlers.Load()
	next := make([]entry, 0, len(old))
	for _, e := range old {
		if e.id != id {
			next = append(next, e)
		}
	}
	r.handlers.Store(&next)
}

// Post queues n for delivery.
func (r *Relay) Post(n api.Notification) {
	r.mu.Lock()
	r.backlog.Add(n)
	r.mu.Unlock()
	r.posted.Add(1)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Notify has the api.NotifyFunc signature.
func (r *Relay) Notify(ev api.Event, userCtx any, h api.Handle) {
	r.Post(api.Notification{Event: ev, Handle: h, UserCtx: userCtx})
}

// Pending returns the number of queued notifications.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backlog.Length()
}

// Stats reports relay counters.
func (r *Relay) Stats() map[string]int64 {
	return map[string]int64{
		"posted":    int64(r.posted.Load()),
		"delivered": int64(r.delivered.Load()),
		"pending":   int64(r.Pending()),
	}
}

// Run delivers notifications until ctx is done or Stop is called. The backlog
// is drained before Run returns. Only the first call runs.
func (r *Relay) Run(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	defer close(r.doneCh)

	batch := make([]api.Notification, 0, r.batchSize)
	for {
		batch = r.take(batch[:0])
		if len(batch) > 0 {
			r.dispatch(batch)
			continue
		}
		select {
		case <-r.wake:
		case <-ctx.Done():
			r.drain(batch)
			return
		case <-r.stopCh:
			r.drain(batch)
			return
		}
	}
}

// Stop ends Run and waits for it. Safe to call more than once, and before
// Run was ever started.
func (r *Relay) Stop() {
	r.stop.Do(func() { close(r.stopCh) })
	if r.running.Load() {
		<-r.doneCh
	}
}

func (r *Relay) take(batch []api.Notification) []api.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(batch) < r.batchSize && r.backlog.Length() > 0 {
		batch = append(batch, r.backlog.Remove().(api.Notification))
	}
	return batch
}

func (r *Relay) drain(batch []api.Notification) {
	n := 0
	for {
		batch = r.take(batch[:0])
		if len(batch) == 0 {
			break
		}
		n += len(batch)
		r.dispatch(batch)
	}
	log.Debug("relay: stopped", "drained", n, "delivered", r.delivered.Load())
}

func (r *Relay) dispatch(batch []api.Notification) {
	handlers := *r.handlers.Load()
	for _, n := range batch {
		for _, e := range handlers {
			r.deliver(e.h, n)
		}
		r.delivered.Add(1)
	}
}

// deliver recovers and logs handler panics.
func (r *Relay) deliver(h Handler, n api.Notification) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("relay: handler panic", "event", n.Event.String(), "buffer", n.Handle.String(), "panic", v)
		}
	}()
	h.HandleNotification(n)
}
