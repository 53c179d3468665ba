// File: facade/mediabuf.go
// Unified facade layer for the mediabuf library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MediaBuf aggregates the components of one buffer queue behind a single
// type: arena allocation, the queue and its mutex guard, the notification
// relay, the control binding, the optional stats recorder and the optional
// WebSocket monitor. All of it is built from one config.Config.

package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/mediabuf/adapters"
	"github.com/momentics/mediabuf/affinity"
	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/config"
	"github.com/momentics/mediabuf/internal/concurrency"
	"github.com/momentics/mediabuf/internal/log"
	"github.com/momentics/mediabuf/monitor"
	"github.com/momentics/mediabuf/pool"
	"github.com/momentics/mediabuf/queue"
	"github.com/momentics/mediabuf/statsdb"
)

// DefaultConfig returns config.Default as a pointer for New.
func DefaultConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

// MediaBuf is the main facade type.
type MediaBuf struct {
	cfg config.Config

	release func() error
	q       *queue.Queue
	sync    *queue.Sync
	relay   *concurrency.Relay
	control *adapters.ControlAdapter
	binding *adapters.QueueBinding
	monitor *monitor.Server
	db      *statsdb.DB

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ api.GracefulShutdown = (*MediaBuf)(nil)

// New validates cfg, maps the arena and builds every component. Nothing runs
// until Start.
func New(cfg *config.Config) (*MediaBuf, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("facade: %w", err)
	}
	log.Init(cfg.LogLevel)

	m := &MediaBuf{cfg: *cfg}
	pc := cfg.Pool()
	mem, release, err := queue.AllocMemory(&pc)
	if err != nil {
		return nil, fmt.Errorf("facade: allocate arena: %w", err)
	}
	m.release = release

	if err := m.build(&pc, mem); err != nil {
		return nil, errors.Join(err, m.teardown())
	}

	log.Info("facade: created",
		"queue", cfg.Name,
		"buffers", pc.BufNum,
		"buf_size", pc.BufSize,
		"mode", pc.Flags.String(),
		"meta_bytes", pc.MetaDataMemSize,
		"buf_bytes", pc.BufMemSize,
	)
	return m, nil
}

func (m *MediaBuf) build(pc *pool.Config, mem pool.Memory) error {
	var err error
	if m.q, err = queue.Create(pc, mem); err != nil {
		return fmt.Errorf("facade: create queue: %w", err)
	}
	if m.sync, err = queue.NewSync(m.q); err != nil {
		return fmt.Errorf("facade: guard queue: %w", err)
	}
	m.relay = concurrency.NewRelay(m.cfg.RelayBatch)
	m.control = adapters.NewControlAdapter()
	if m.binding, err = adapters.BindQueue(m.cfg.Name, m.sync, m.control, m.relay); err != nil {
		return fmt.Errorf("facade: %w", err)
	}
	m.control.RegisterDebugProbe("relay", func() any { return m.relay.Stats() })

	// Expose configuration values via Control for observability and hot reload.
	snapshot := map[string]any{
		"name":      m.cfg.Name,
		"ring_mode": m.cfg.RingMode,
		"buf_num":   pc.BufNum,
		"buf_size":  pc.BufSize,
	}
	snapshot[adapters.KeyLowWatermark] = pc.LowWatermark
	snapshot[adapters.KeyHighWatermark] = pc.HighWatermark
	if err := m.control.SetConfig(snapshot); err != nil {
		return fmt.Errorf("facade: publish config: %w", err)
	}

	m.monitor = monitor.New(time.Duration(m.cfg.SampleInterval))
	m.monitor.AddQueue(m.cfg.Name, m.sync.GetStats)
	m.control.RegisterDebugProbe("monitor", func() any { return m.monitor.Stats() })

	if m.cfg.StatsDB != "" {
		if m.db, err = statsdb.Open(m.cfg.StatsDB); err != nil {
			return fmt.Errorf("facade: %w", err)
		}
	}
	return nil
}

// Start runs the relay, the periodic sampler and, with MonitorAddr set, the
// monitor. Subsequent calls have no effect.
func (m *MediaBuf) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return api.ErrInvalidHandle.WithContext("reason", "shut down")
	}
	if m.started {
		return nil
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.started = true

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		if cpu := m.cfg.RelayCPU; cpu >= 0 {
			if err := affinity.Pin(cpu); err != nil {
				log.Warn("facade: relay not pinned", "cpu", cpu, "err", err)
			}
		}
		m.relay.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.sampleLoop(ctx)
	}()

	if addr := m.cfg.MonitorAddr; addr != "" {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.monitor.ListenAndServe(ctx, addr); err != nil {
				log.Error("facade: monitor stopped", "addr", addr, "err", err)
			}
		}()
	}
	log.Info("facade: started", "queue", m.cfg.Name, "monitor", m.cfg.MonitorAddr, "stats_db", m.cfg.StatsDB)
	return nil
}

func (m *MediaBuf) sampleLoop(ctx context.Context) {
	interval := time.Duration(m.cfg.SampleInterval)
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.Sample(ctx); err != nil && ctx.Err() == nil {
				log.Warn("facade: sample failed", "queue", m.cfg.Name, "err", err)
			}
		}
	}
}

// Sample publishes the current statistics as metrics and records them when a
// stats database is configured.
func (m *MediaBuf) Sample(ctx context.Context) (api.QueueStats, error) {
	st := m.binding.PublishStats()
	if m.db == nil {
		return st, nil
	}
	return st, m.db.Record(ctx, statsdb.Sample{Queue: m.cfg.Name, At: time.Now(), Stats: st})
}

// Queue returns the guarded queue producers and consumers share.
func (m *MediaBuf) Queue() *queue.Sync { return m.sync }

// Control returns the control plane.
func (m *MediaBuf) Control() api.Control { return m.control }

// Debug returns the debug probes.
func (m *MediaBuf) Debug() api.Debug { return m.control.Debug() }

// Monitor returns the monitor server, for mounting its Handler elsewhere.
func (m *MediaBuf) Monitor() *monitor.Server { return m.monitor }

// StatsDB returns the recorder, nil when none is configured.
func (m *MediaBuf) StatsDB() *statsdb.DB { return m.db }

// Relay returns the notification relay, for extra handlers.
func (m *MediaBuf) Relay() *concurrency.Relay { return m.relay }

// Config returns the configuration the facade was built from.
func (m *MediaBuf) Config() config.Config { return m.cfg }

// Shutdown stops the goroutines, destroys the queue and unmaps the arena.
// Handles obtained earlier are invalid afterwards.
func (m *MediaBuf) Shutdown() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	err := m.teardown()
	log.Info("facade: shut down", "queue", m.cfg.Name, "err", err)
	return err
}

// teardown releases whatever build got to.
func (m *MediaBuf) teardown() error {
	var errs []error
	if m.relay != nil {
		m.relay.Stop()
	}
	if m.binding != nil {
		errs = append(errs, m.binding.Close())
	}
	if m.sync != nil {
		errs = append(errs, m.sync.Close())
	}
	if m.q != nil {
		errs = append(errs, m.q.Destroy())
	}
	if m.db != nil {
		errs = append(errs, m.db.Close())
	}
	if m.release != nil {
		errs = append(errs, m.release())
	}
	return errors.Join(errs...)
}
