// File: adapters/queue_binding.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// QueueBinding connects a guarded queue to the control plane: notifications
// become counters, stats become gauges, slot records become a debug probe and
// watermark keys of the config store are applied on reload.

package adapters

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/concurrency"
	"github.com/momentics/mediabuf/internal/log"
	"github.com/momentics/mediabuf/queue"
)

// Config keys applied on reload.
const (
	KeyLowWatermark  = "low_watermark"
	KeyHighWatermark = "high_watermark"
)

// QueueBinding publishes one queue through an api.Control.
type QueueBinding struct {
	name  string
	q     *queue.Sync
	ctrl  api.Control
	relay *concurrency.Relay

	cbID      api.CallbackID
	handlerID uint64
	closed    atomic.Bool
}

// BindQueue wires q to ctrl under the metric prefix "queue.<name>". With a
// relay the notifications are handled on the relay goroutine, otherwise
// inline inside the queue operation.
func BindQueue(name string, q *queue.Sync, ctrl api.Control, relay *concurrency.Relay) (*QueueBinding, error) {
	b := &QueueBinding{name: name, q: q, ctrl: ctrl, relay: relay}
	h := Chain(concurrency.HandlerFunc(b.handle),
		RecoveryMiddleware,
		MetricsMiddleware(ctrl, b.prefix()),
		LoggingMiddleware,
	)

	var (
		id  api.CallbackID
		err error
	)
	if relay != nil {
		b.handlerID = relay.RegisterHandler(b.only(h))
		id, err = q.RegisterCb(relay.Notify, name)
	} else {
		id, err = q.RegisterCb(func(ev api.Event, userCtx any, bh api.Handle) {
			h.HandleNotification(api.Notification{Event: ev, Handle: bh, UserCtx: userCtx})
		}, name)
	}
	if err != nil {
		if relay != nil {
			relay.UnregisterHandler(b.handlerID)
		}
		return nil, fmt.Errorf("bind queue %s: %w", name, err)
	}
	b.cbID = id

	ctrl.RegisterDebugProbe(b.prefix()+".slots", func() any { return q.Slots() })
	ctrl.OnReload(b.reload)
	b.PublishStats()
	return b, nil
}

func (b *QueueBinding) prefix() string { return "queue." + b.name }

// only filters a shared relay down to this queue's notifications.
func (b *QueueBinding) only(next concurrency.Handler) concurrency.Handler {
	return concurrency.HandlerFunc(func(n api.Notification) {
		if n.UserCtx == b.name {
			next.HandleNotification(n)
		}
	})
}

func (b *QueueBinding) handle(n api.Notification) {
	switch n.Event {
	case api.HighWatermarkEntered:
		log.Warn("queue: high watermark entered", "queue", b.name, "buffer", n.Handle.String())
	case api.HighWatermarkLeft:
		log.Info("queue: high watermark left", "queue", b.name)
	case api.LowWatermarkEntered:
		log.Info("queue: low watermark entered", "queue", b.name)
	}
}

// PublishStats copies the queue statistics into gauges and returns them.
func (b *QueueBinding) PublishStats() api.QueueStats {
	st, err := b.q.GetStats()
	if err != nil {
		log.Warn("queue: stats unavailable", "queue", b.name, "err", err)
		return st
	}
	p := b.prefix()
	b.ctrl.SetMetric(p+".curr_fill_level", st.CurrFillLevel)
	b.ctrl.SetMetric(p+".max_fill_level", st.MaxFillLevel)
	b.ctrl.SetMetric(p+".avg_fill_level", st.AvgFillLevel.Float64())
	b.ctrl.SetMetric(p+".mean_target_area", st.MeanTargetArea.Float64())
	b.ctrl.SetMetric(p+".full_buffers", b.q.FullBuffersAvailable())
	return st
}

// reload applies watermark keys present in the config store.
func (b *QueueBinding) reload() {
	if b.closed.Load() {
		return
	}
	cfg := b.ctrl.GetConfig()
	for key, id := range map[string]api.ParamID{
		KeyLowWatermark:  api.ParamLowWatermark,
		KeyHighWatermark: api.ParamHighWatermark,
	} {
		raw, ok := cfg[key]
		if !ok {
			continue
		}
		v, ok := toInt(raw)
		if !ok {
			log.Warn("queue: ignoring watermark", "queue", b.name, "key", key, "value", raw)
			continue
		}
		cur, err := b.q.GetParameter(id)
		if err == nil && cur == v {
			continue
		}
		if err := b.q.SetParameter(id, v); err != nil {
			log.Warn("queue: watermark rejected", "queue", b.name, "key", key, "value", v, "err", err)
			continue
		}
		log.Info("queue: watermark updated", "queue", b.name, "key", key, "value", v)
	}
}

// toInt accepts the numeric types a JSON or Go caller may put in the store.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Close detaches the binding from queue and relay. Reload hooks stay
// registered with the control plane but become no-ops.
func (b *QueueBinding) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.relay != nil {
		b.relay.UnregisterHandler(b.handlerID)
	}
	return b.q.DeregisterCb(b.cbID)
}
