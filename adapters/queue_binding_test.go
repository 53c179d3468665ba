// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package adapters_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/momentics/mediabuf/adapters"
	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/concurrency"
	"github.com/momentics/mediabuf/internal/log"
	"github.com/momentics/mediabuf/pool"
	"github.com/momentics/mediabuf/queue"
)

func init() {
	log.SetOutput(io.Discard, "error")
}

func newSyncQueue(t *testing.T) *queue.Sync {
	t.Helper()
	cfg := pool.Config{BufNum: 8, MaxBufNum: 8, BufSize: 64, LowWatermark: 2, HighWatermark: 5}
	mem, release, err := queue.AllocMemory(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = release() })
	q, err := queue.Create(&cfg, mem)
	if err != nil {
		t.Fatal(err)
	}
	s, err := queue.NewSync(q)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func produceN(t *testing.T, s *queue.Sync, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h, err := s.GetEmptyBuffer()
		if err != nil {
			t.Fatal(err)
		}
		if err := s.PutFullBuffer(h); err != nil {
			t.Fatal(err)
		}
	}
}

func eventKey(ev api.Event) string {
	return "queue.video.events." + adapters.EventMetricName(ev)
}

func TestQueueBindingInline(t *testing.T) {
	s := newSyncQueue(t)
	ctrl := adapters.NewControlAdapter()
	b, err := adapters.BindQueue("video", s, ctrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	produceN(t, s, 5)
	stats := ctrl.Stats()
	if stats[eventKey(api.FullBufferAdded)] != int64(5) {
		t.Errorf("full buffer counter = %v", stats[eventKey(api.FullBufferAdded)])
	}
	if stats[eventKey(api.HighWatermarkEntered)] != int64(1) {
		t.Errorf("high watermark counter = %v", stats[eventKey(api.HighWatermarkEntered)])
	}

	st := b.PublishStats()
	if st.CurrFillLevel != 5 {
		t.Errorf("stats = %+v", st)
	}
	if ctrl.Stats()["queue.video.curr_fill_level"] != 5 {
		t.Error("gauge not published")
	}
	slots, ok := ctrl.Stats()["debug.queue.video.slots"].([]api.BufferInfo)
	if !ok || len(slots) != 8 {
		t.Fatalf("slot probe = %T", ctrl.Stats()["debug.queue.video.slots"])
	}
	locked := 0
	for _, si := range slots {
		if !si.Free() {
			locked++
		}
	}
	if locked != 5 {
		t.Errorf("probe shows %d locked slots", locked)
	}
}

func TestQueueBindingReload(t *testing.T) {
	s := newSyncQueue(t)
	ctrl := adapters.NewControlAdapter()
	b, err := adapters.BindQueue("video", s, ctrl, nil)
	if err != nil {
		t.Fatal(err)
	}

	// JSON numbers arrive as float64
	_ = ctrl.SetConfig(map[string]any{adapters.KeyHighWatermark: float64(7), adapters.KeyLowWatermark: 3})
	if v, _ := s.GetParameter(api.ParamHighWatermark); v != 7 {
		t.Errorf("high watermark = %d", v)
	}
	if v, _ := s.GetParameter(api.ParamLowWatermark); v != 3 {
		t.Errorf("low watermark = %d", v)
	}

	_ = ctrl.SetConfig(map[string]any{adapters.KeyHighWatermark: "lots"})
	if v, _ := s.GetParameter(api.ParamHighWatermark); v != 7 {
		t.Errorf("bad value applied: %d", v)
	}

	_ = b.Close()
	_ = ctrl.SetConfig(map[string]any{adapters.KeyHighWatermark: 4})
	if v, _ := s.GetParameter(api.ParamHighWatermark); v != 7 {
		t.Errorf("closed binding still reloads: %d", v)
	}
}

func TestQueueBindingThroughRelay(t *testing.T) {
	s := newSyncQueue(t)
	ctrl := adapters.NewControlAdapter()
	relay := concurrency.NewRelay(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)
	defer relay.Stop()

	b, err := adapters.BindQueue("video", s, ctrl, relay)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	produceN(t, s, 3)
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Stats()[eventKey(api.FullBufferAdded)] != int64(3) {
		if time.Now().After(deadline) {
			t.Fatalf("relay delivered %v", ctrl.Stats()[eventKey(api.FullBufferAdded)])
		}
		time.Sleep(time.Millisecond)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) adapters.Middleware {
		return func(next concurrency.Handler) concurrency.Handler {
			return concurrency.HandlerFunc(func(n api.Notification) {
				order = append(order, name)
				next.HandleNotification(n)
			})
		}
	}
	h := adapters.Chain(concurrency.HandlerFunc(func(api.Notification) { order = append(order, "base") }),
		mw("outer"), mw("inner"), adapters.RecoveryMiddleware)
	h.HandleNotification(api.Notification{Event: api.FullBufferAdded})
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "base" {
		t.Errorf("order = %v", order)
	}

	panicky := adapters.Chain(concurrency.HandlerFunc(func(api.Notification) { panic("x") }), adapters.RecoveryMiddleware)
	panicky.HandleNotification(api.Notification{})
}
