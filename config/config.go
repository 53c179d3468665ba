// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File configuration for a mediabuf instance. Files are JSON.

package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
)

// Config is the on-disk configuration. Durations are Go duration strings.
type Config struct {
	Name string `json:"name"` // queue name in metrics and monitor frames

	BufNum       int  `json:"buf_num"`
	MaxBufNum    int  `json:"max_buf_num"`
	BufSize      int  `json:"buf_size"`
	BufAlign     int  `json:"buf_align"`
	MetaDataSize int  `json:"meta_data_size"`
	RingMode     bool `json:"ring_mode"`

	LowWatermark  int `json:"low_watermark"`
	HighWatermark int `json:"high_watermark"`

	LogLevel       string   `json:"log_level"`
	MonitorAddr    string   `json:"monitor_addr"`
	StatsDB        string   `json:"stats_db"`
	SampleInterval Duration `json:"sample_interval"`
	RelayBatch     int      `json:"relay_batch"`

	// RelayCPU pins the relay goroutine to one CPU. Negative disables it.
	RelayCPU int `json:"relay_cpu"`
}

// Duration decodes from "250ms" style strings.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return sonnet.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := sonnet.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Default is an eight buffer general-mode queue of 64 KiB frames.
func Default() Config {
	return Config{
		Name:           "main",
		BufNum:         8,
		MaxBufNum:      8,
		BufSize:        64 << 10,
		BufAlign:       64,
		LowWatermark:   2,
		HighWatermark:  6,
		LogLevel:       "info",
		SampleInterval: Duration(time.Second),
		RelayBatch:     16,
		RelayCPU:       -1,
	}
}

// Load reads path over Default. Missing keys keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := sonnet.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as JSON.
func Save(path string, cfg Config) error {
	b, err := sonnet.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Validate checks everything pool.GetSize checks plus the collaborator fields.
func (c Config) Validate() error {
	pc := c.Pool()
	if pc.BufNum <= 0 || pc.BufSize <= 0 {
		return api.ErrInvalidConfig.WithContext("reason", "buf_num and buf_size must be positive")
	}
	if err := pool.GetSize(&pc); err != nil {
		return err
	}
	for name, v := range map[string]int{"low_watermark": c.LowWatermark, "high_watermark": c.HighWatermark} {
		if v < 0 || v > api.MaxWatermark {
			return api.ErrInvalidConfig.WithContext(name, v)
		}
	}
	if c.HighWatermark != 0 && c.LowWatermark >= c.HighWatermark {
		return api.ErrInvalidConfig.WithContext("reason", "low_watermark must be below high_watermark")
	}
	if c.Name == "" {
		return api.ErrInvalidConfig.WithContext("reason", "empty name")
	}
	if c.RelayCPU >= runtime.NumCPU() {
		return api.ErrInvalidConfig.WithContext("relay_cpu", c.RelayCPU)
	}
	if c.SampleInterval < 0 || c.RelayBatch < 0 {
		return api.ErrInvalidConfig.WithContext("reason", "negative sample_interval or relay_batch")
	}
	return nil
}

// Pool converts to a pool geometry. MaxBufNum 0 means BufNum.
func (c Config) Pool() pool.Config {
	pc := pool.Config{
		BufNum:        c.BufNum,
		MaxBufNum:     c.MaxBufNum,
		BufSize:       c.BufSize,
		BufAlign:      c.BufAlign,
		MetaDataSize:  c.MetaDataSize,
		LowWatermark:  c.LowWatermark,
		HighWatermark: c.HighWatermark,
	}
	if pc.MaxBufNum == 0 {
		pc.MaxBufNum = pc.BufNum
	}
	if c.RingMode {
		pc.Flags |= api.FlagRingBuffer
	}
	return pc
}
