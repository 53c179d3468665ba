// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package queue_test

import (
	"errors"
	"testing"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
	"github.com/momentics/mediabuf/queue"
)

func newSharedSet(t *testing.T, cfg pool.Config, n int) (*pool.Pool, []*queue.Shared) {
	t.Helper()
	if err := pool.GetSize(&cfg); err != nil {
		t.Fatal(err)
	}
	p, err := pool.Create(&cfg, pool.Memory{
		MetaData: make([]byte, cfg.MetaDataMemSize),
		Buffers:  make([]byte, cfg.BufMemSize),
	})
	if err != nil {
		t.Fatal(err)
	}
	qs := make([]*queue.Shared, n)
	for i := range qs {
		qs[i], err = queue.CreateShared(make([]byte, queue.SharedIndexSize(p)), p)
		if err != nil {
			t.Fatal(err)
		}
	}
	return p, qs
}

func TestSharedFanOut(t *testing.T) {
	p, qs := newSharedSet(t, pool.Config{BufNum: 4, MaxBufNum: 4, BufSize: 64}, 2)
	a, b := qs[0], qs[1]

	h, err := a.GetEmptyBuffer()
	if err != nil {
		t.Fatal(err)
	}
	n, err := queue.Publish(p, h, a, b)
	if err != nil || n != 2 {
		t.Fatalf("Publish = %d, %v", n, err)
	}
	if lc, _ := p.LockCount(h); lc != 2 {
		t.Fatalf("lock count = %d, want one per queue", lc)
	}
	if p.FillLevel() != 1 {
		t.Errorf("pool fill = %d", p.FillLevel())
	}

	ga, err := a.GetFullBuffer()
	if err != nil || ga != h {
		t.Fatalf("a dequeued %v %v", ga, err)
	}
	if err := a.ReleaseBuffer(ga); err != nil {
		t.Fatal(err)
	}
	if p.FreeBufNum() != 3 {
		t.Fatalf("buffer freed while queue b still holds it")
	}

	gb, err := b.GetFullBuffer()
	if err != nil || gb != h {
		t.Fatalf("b dequeued %v %v", gb, err)
	}
	if err := b.ReleaseBuffer(gb); err != nil {
		t.Fatal(err)
	}
	if p.FreeBufNum() != 4 || p.FillLevel() != 0 {
		t.Errorf("free=%d fill=%d after both consumers", p.FreeBufNum(), p.FillLevel())
	}
}

func TestSharedPublishWithoutTakers(t *testing.T) {
	p, _ := newSharedSet(t, pool.Config{BufNum: 2, MaxBufNum: 2, BufSize: 64}, 0)
	h, _ := p.GetBuffer()
	n, err := queue.Publish(p, h)
	if err != nil || n != 0 {
		t.Fatalf("Publish = %d, %v", n, err)
	}
	if p.FreeBufNum() != 2 || p.FillLevel() != 0 {
		t.Errorf("free=%d fill=%d", p.FreeBufNum(), p.FillLevel())
	}
}

func TestSharedManualPutAndDone(t *testing.T) {
	p, qs := newSharedSet(t, pool.Config{BufNum: 2, MaxBufNum: 2, BufSize: 64}, 1)
	q := qs[0]
	h, _ := q.GetEmptyBuffer()
	_ = p.BufferFilled(h)
	if err := q.PutFullBuffer(h); err != nil {
		t.Fatal(err)
	}
	if err := q.PutFullBufferDone(h); err != nil {
		t.Fatal(err)
	}
	if lc, _ := p.LockCount(h); lc != 1 {
		t.Errorf("lock count = %d after producer is done", lc)
	}
	got, _ := q.GetFullBuffer()
	if err := q.ReleaseBuffer(got); err != nil {
		t.Fatal(err)
	}
	if err := q.ReleaseBuffer(got); !errors.Is(err, api.ErrNotLocked) {
		t.Errorf("release past zero: %v", err)
	}
}

func TestSharedOwnWatermarks(t *testing.T) {
	p, qs := newSharedSet(t, pool.Config{BufNum: 8, MaxBufNum: 8, BufSize: 16}, 2)
	fast, slow := qs[0], qs[1]
	if err := slow.SetParameter(api.ParamHighWatermark, 3); err != nil {
		t.Fatal(err)
	}
	if p.HighWatermark() != 0 {
		t.Fatal("queue watermark leaked into the pool")
	}

	var slowEvents, fastEvents []api.Event
	_, _ = slow.RegisterCb(func(ev api.Event, _ any, _ api.Handle) { slowEvents = append(slowEvents, ev) }, nil)
	_, _ = fast.RegisterCb(func(ev api.Event, _ any, _ api.Handle) { fastEvents = append(fastEvents, ev) }, nil)

	for i := 0; i < 3; i++ {
		h, _ := fast.GetEmptyBuffer()
		if _, err := queue.Publish(p, h, fast, slow); err != nil {
			t.Fatal(err)
		}
		// fast consumer keeps up
		got, _ := fast.GetFullBuffer()
		_ = fast.ReleaseBuffer(got)
	}

	if !containsEvent(slowEvents, api.HighWatermarkEntered) {
		t.Errorf("slow queue events %v lack HighWatermarkEntered", slowEvents)
	}
	if containsEvent(fastEvents, api.HighWatermarkEntered) {
		t.Errorf("fast queue saw the slow queue's watermark")
	}
	if st, _ := slow.GetStats(); st.CurrFillLevel != 3 || st.MaxFillLevel != 3 {
		t.Errorf("slow stats = %+v", st)
	}
	if st, _ := fast.GetStats(); st.CurrFillLevel != 0 || st.MaxFillLevel != 1 {
		t.Errorf("fast stats = %+v", st)
	}

	got, _ := slow.GetFullBuffer()
	if !containsEvent(slowEvents, api.FullBufferRemoved) || !containsEvent(slowEvents, api.HighWatermarkLeft) {
		t.Errorf("dequeue events missing: %v", slowEvents)
	}
	slowEvents = nil
	_ = slow.ReleaseBuffer(got)
	if !containsEvent(slowEvents, api.EmptyBufferAdded) {
		t.Errorf("last release did not notify: %v", slowEvents)
	}
}

func TestSharedFlushKeepsOtherHolders(t *testing.T) {
	p, qs := newSharedSet(t, pool.Config{BufNum: 4, MaxBufNum: 4, BufSize: 16}, 2)
	a, b := qs[0], qs[1]
	for i := 0; i < 2; i++ {
		h, _ := a.GetEmptyBuffer()
		_, _ = queue.Publish(p, h, a, b)
	}
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}
	if a.FullBuffersAvailable() != 0 || b.FullBuffersAvailable() != 2 {
		t.Fatalf("a=%d b=%d", a.FullBuffersAvailable(), b.FullBuffersAvailable())
	}
	if p.FreeBufNum() != 2 {
		t.Fatalf("free = %d while b still holds two buffers", p.FreeBufNum())
	}
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if p.FreeBufNum() != 4 || p.FillLevel() != 0 {
		t.Errorf("free=%d fill=%d", p.FreeBufNum(), p.FillLevel())
	}
}

func TestSharedResetAndDestroyLeavePool(t *testing.T) {
	p, qs := newSharedSet(t, pool.Config{BufNum: 4, MaxBufNum: 4, BufSize: 16}, 1)
	q := qs[0]
	h, _ := q.GetEmptyBuffer()
	_, _ = queue.Publish(p, h, q)
	if err := q.Reset(); err != nil {
		t.Fatal(err)
	}
	if q.FullBuffersAvailable() != 0 {
		t.Error("queue not cleared")
	}
	if lc, _ := p.LockCount(h); lc != 1 {
		t.Errorf("Reset touched the pool: lock count %d", lc)
	}
	if err := q.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !p.Valid() {
		t.Error("Destroy of a shared queue destroyed the pool")
	}
	if _, err := q.GetFullBuffer(); !errors.Is(err, api.ErrInvalidHandle) {
		t.Errorf("destroyed queue: %v", err)
	}
}

func TestCreateSharedRejects(t *testing.T) {
	p, _ := newSharedSet(t, pool.Config{BufNum: 4, MaxBufNum: 4, BufSize: 16}, 0)
	if _, err := queue.CreateShared(make([]byte, 3), p); !errors.Is(err, api.ErrInvalidParameter) {
		t.Errorf("short index: %v", err)
	}
	if _, err := queue.CreateShared(nil, p); !errors.Is(err, api.ErrInvalidParameter) {
		t.Errorf("nil index: %v", err)
	}
	_ = p.Destroy()
	if _, err := queue.CreateShared(make([]byte, 64), p); !errors.Is(err, api.ErrInvalidHandle) {
		t.Errorf("destroyed pool: %v", err)
	}
}

func containsEvent(evs []api.Event, want api.Event) bool {
	for _, ev := range evs {
		if ev == want {
			return true
		}
	}
	return false
}

func TestSharedPutWithoutFilledPanics(t *testing.T) {
	_, qs := newSharedSet(t, pool.Config{BufNum: 2, MaxBufNum: 2, BufSize: 16}, 1)
	h, _ := qs[0].GetEmptyBuffer()
	defer func() {
		if recover() == nil {
			t.Error("PutFullBuffer accepted a buffer the pool never counted as full")
		}
	}()
	_ = qs[0].PutFullBuffer(h)
}
