// File: adapters/handler_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Middleware chains for relayed buffer notifications.

package adapters

import (
	"strings"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/concurrency"
	"github.com/momentics/mediabuf/internal/log"
)

// Middleware wraps a notification handler.
type Middleware func(concurrency.Handler) concurrency.Handler

// Chain applies middleware around h; the first one listed runs outermost.
func Chain(h concurrency.Handler, mw ...Middleware) concurrency.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// LoggingMiddleware logs every notification at debug level.
func LoggingMiddleware(next concurrency.Handler) concurrency.Handler {
	return concurrency.HandlerFunc(func(n api.Notification) {
		log.Debug("notify: event", "event", n.Event.String(), "buffer", n.Handle.String(), "ctx", n.UserCtx)
		next.HandleNotification(n)
	})
}

// RecoveryMiddleware stops a handler panic at this point of the chain.
func RecoveryMiddleware(next concurrency.Handler) concurrency.Handler {
	return concurrency.HandlerFunc(func(n api.Notification) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("notify: panic recovered", "event", n.Event.String(), "panic", r)
			}
		}()
		next.HandleNotification(n)
	})
}

// MetricsMiddleware counts notifications per event under
// "<prefix>.events.<event>".
func MetricsMiddleware(ctrl api.Control, prefix string) Middleware {
	return func(next concurrency.Handler) concurrency.Handler {
		return concurrency.HandlerFunc(func(n api.Notification) {
			ctrl.AddMetric(prefix+".events."+EventMetricName(n.Event), 1)
			next.HandleNotification(n)
		})
	}
}

// EventMetricName turns HIGH_WATERMARK_CRITICAL_REGION_ENTERED into
// high_watermark_critical_region_entered.
func EventMetricName(ev api.Event) string {
	return strings.ToLower(ev.String())
}
