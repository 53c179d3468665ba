// File: pool/notify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size callback table fired synchronously on fill level changes.

package pool

import (
	"github.com/momentics/mediabuf/api"
)

// MaxCallbacks is the capacity of a callback table.
const MaxCallbacks = 10

type callback struct {
	id      api.CallbackID
	fn      api.NotifyFunc
	userCtx any
}

// Registry is a fixed table of notification callbacks. The zero value is ready
// to use. Queues sharing an external pool keep their own Registry.
type Registry struct {
	entries [MaxCallbacks]callback
	lastID  api.CallbackID
}

// Register stores fn in the first empty entry.
func (r *Registry) Register(fn api.NotifyFunc, userCtx any) (api.CallbackID, error) {
	if fn == nil {
		return 0, api.ErrInvalidParameter.WithContext("reason", "nil callback")
	}
	for i := range r.entries {
		if r.entries[i].fn == nil {
			r.lastID++
			if r.lastID == 0 {
				r.lastID++
			}
			r.entries[i] = callback{id: r.lastID, fn: fn, userCtx: userCtx}
			return r.lastID, nil
		}
	}
	return 0, api.ErrNotAvailable.WithContext("reason", "callback table full")
}

// Deregister clears the first entry registered under id.
func (r *Registry) Deregister(id api.CallbackID) error {
	if id == 0 {
		return api.ErrInvalidParameter.WithContext("reason", "zero callback id")
	}
	for i := range r.entries {
		if r.entries[i].fn != nil && r.entries[i].id == id {
			r.entries[i] = callback{}
			return nil
		}
	}
	return api.ErrNotAvailable.WithContext("callback", id)
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	n := 0
	for i := range r.entries {
		if r.entries[i].fn != nil {
			n++
		}
	}
	return n
}

// Fire calls every registered callback in table order.
func (r *Registry) Fire(ev api.Event, h api.Handle) {
	for i := range r.entries {
		if cb := r.entries[i]; cb.fn != nil {
			cb.fn(ev, cb.userCtx, h)
		}
	}
}

// Clear drops every registration.
func (r *Registry) Clear() {
	*r = Registry{}
}

// RegisterCb adds a pool callback.
func (p *Pool) RegisterCb(fn api.NotifyFunc, userCtx any) (api.CallbackID, error) {
	if !p.alive() {
		return 0, api.ErrInvalidHandle
	}
	return p.callbacks.Register(fn, userCtx)
}

// DeregisterCb removes a pool callback.
func (p *Pool) DeregisterCb(id api.CallbackID) error {
	if !p.alive() {
		return api.ErrInvalidHandle
	}
	return p.callbacks.Deregister(id)
}

func (p *Pool) fire(ev api.Event, h api.Handle) {
	p.callbacks.Fire(ev, h)
}
