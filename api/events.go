// File: api/events.go
// Package api defines buffer flow notifications.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Event is the kind of a pool or queue notification.
type Event int

const (
	FullBufferAdded Event = iota + 1
	EmptyBufferAdded
	HighWatermarkEntered
	HighWatermarkLeft
	LowWatermarkEntered
	LowWatermarkLeft
	// FullBufferRemoved is raised only by queues sharing an external pool.
	FullBufferRemoved
)

func (e Event) String() string {
	switch e {
	case FullBufferAdded:
		return "FULL_BUFFER_ADDED"
	case EmptyBufferAdded:
		return "EMPTY_BUFFER_ADDED"
	case HighWatermarkEntered:
		return "HIGH_WATERMARK_CRITICAL_REGION_ENTERED"
	case HighWatermarkLeft:
		return "HIGH_WATERMARK_CRITICAL_REGION_LEFT"
	case LowWatermarkEntered:
		return "LOW_WATERMARK_CRITICAL_REGION_ENTERED"
	case LowWatermarkLeft:
		return "LOW_WATERMARK_CRITICAL_REGION_LEFT"
	case FullBufferRemoved:
		return "FULL_BUFFER_REMOVED"
	default:
		return "UNKNOWN_EVENT"
	}
}

// NotifyFunc receives a notification together with the context given at
// registration and the buffer that triggered it. It is called synchronously
// from inside the pool operation and must not call back into the same pool.
type NotifyFunc func(ev Event, userCtx any, h Handle)

// CallbackID identifies a registered NotifyFunc. Zero is never issued.
type CallbackID uint32

// Notification is the message form of a NotifyFunc call.
type Notification struct {
	Event   Event
	Handle  Handle
	UserCtx any
}
