// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides notification recorders and synthetic media
// producers and consumers for tests, benchmarks and the simulator.
package fake

import (
	"sync"

	"github.com/momentics/mediabuf/api"
)

// Recorder collects notifications. Its Notify method is an api.NotifyFunc.
type Recorder struct {
	mu  sync.Mutex
	got []api.Notification
}

func (r *Recorder) Notify(ev api.Event, userCtx any, h api.Handle) {
	r.mu.Lock()
	r.got = append(r.got, api.Notification{Event: ev, Handle: h, UserCtx: userCtx})
	r.mu.Unlock()
}

// Events returns the recorded events in delivery order.
func (r *Recorder) Events() []api.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := make([]api.Event, len(r.got))
	for i, n := range r.got {
		evs[i] = n.Event
	}
	return evs
}

func (r *Recorder) Notifications() []api.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Notification(nil), r.got...)
}

// Count reports how often ev was seen.
func (r *Recorder) Count(ev api.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, g := range r.got {
		if g.Event == ev {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.got = nil
	r.mu.Unlock()
}
