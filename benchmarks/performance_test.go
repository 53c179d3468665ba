// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for mediabuf components.

package benchmarks

import (
	"context"
	"io"
	"testing"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/facade"
	"github.com/momentics/mediabuf/fake"
	"github.com/momentics/mediabuf/internal/concurrency"
	"github.com/momentics/mediabuf/internal/log"
	"github.com/momentics/mediabuf/pool"
	"github.com/momentics/mediabuf/queue"
)

func init() {
	log.SetOutput(io.Discard, "error")
}

func newQueue(b *testing.B, cfg pool.Config) *queue.Queue {
	b.Helper()
	mem, release, err := queue.AllocMemory(&cfg)
	if err != nil {
		b.Fatal(err)
	}
	q, err := queue.Create(&cfg, mem)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() {
		_ = q.Destroy()
		_ = release()
	})
	return q
}

// BenchmarkPoolGetFree measures one acquire and release of a pool slot.
func BenchmarkPoolGetFree(b *testing.B) {
	for _, ring := range []bool{false, true} {
		name := "general"
		cfg := pool.Config{BufNum: 64, MaxBufNum: 64, BufSize: 4096}
		if ring {
			name = "ring"
			cfg.Flags |= api.FlagRingBuffer
		}
		b.Run(name, func(b *testing.B) {
			p := newQueue(b, cfg).Pool()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h, err := p.GetBuffer()
				if err != nil {
					b.Fatal(err)
				}
				_ = p.FreeBuffer(h)
			}
		})
	}
}

// BenchmarkQueueRoundTrip measures get, put, dequeue and release on one goroutine.
func BenchmarkQueueRoundTrip(b *testing.B) {
	q := newQueue(b, pool.Config{BufNum: 16, MaxBufNum: 16, BufSize: 1024, LowWatermark: 2, HighWatermark: 12})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _ := q.GetEmptyBuffer()
		_ = q.PutFullBuffer(h)
		h, _ = q.GetFullBuffer()
		_ = q.ReleaseBuffer(h)
	}
}

// BenchmarkSharedPublish measures fan-out of one buffer to four queues.
func BenchmarkSharedPublish(b *testing.B) {
	cfg := pool.Config{BufNum: 8, MaxBufNum: 8, BufSize: 1024}
	p := newQueue(b, cfg).Pool()
	qs := make([]*queue.Shared, 4)
	for i := range qs {
		var err error
		if qs[i], err = queue.CreateShared(make([]byte, queue.SharedIndexSize(p)), p); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := p.GetBuffer()
		if err != nil {
			b.Fatal(err)
		}
		if _, err := queue.Publish(p, h, qs...); err != nil {
			b.Fatal(err)
		}
		for _, q := range qs {
			g, _ := q.GetFullBuffer()
			_ = q.ReleaseBuffer(g)
		}
	}
}

// BenchmarkSyncPipeline measures a producer and a consumer goroutine
// handing frames through the guarded queue.
func BenchmarkSyncPipeline(b *testing.B) {
	s, err := queue.NewSync(newQueue(b, pool.Config{BufNum: 32, MaxBufNum: 32, BufSize: 1500}))
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	b.ResetTimer()
	done := make(chan error, 1)
	go func() {
		_, err := (&fake.Producer{Q: s}).Run(ctx, b.N)
		done <- err
	}()
	if _, err := (&fake.Consumer{Q: s}).Run(ctx, b.N); err != nil {
		b.Fatal(err)
	}
	if err := <-done; err != nil {
		b.Fatal(err)
	}
}

// BenchmarkRelayPost measures posting notifications to a running relay.
func BenchmarkRelayPost(b *testing.B) {
	r := concurrency.NewRelay(32)
	r.RegisterHandler(concurrency.HandlerFunc(func(api.Notification) {}))
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	defer cancel()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.Post(api.Notification{Event: api.FullBufferAdded})
		}
	})
}

// BenchmarkFacadeSample measures one stats sample through the facade.
func BenchmarkFacadeSample(b *testing.B) {
	cfg := facade.DefaultConfig()
	cfg.SampleInterval = 0
	m, err := facade.New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Shutdown()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Sample(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
