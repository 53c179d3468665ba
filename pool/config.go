// File: pool/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool geometry and memory size computation.

package pool

import (
	"github.com/momentics/mediabuf/api"
)

// Config describes the geometry of a pool. MetaDataMemSize and BufMemSize are
// outputs written by GetSize.
type Config struct {
	BufNum       int // active slots cycled by acquire
	MaxBufNum    int // slots laid out in memory, BufNum <= MaxBufNum
	BufSize      int // payload bytes per slot
	BufAlign     int // payload alignment, power of two; 0 means unaligned
	MetaDataSize int // per-buffer metadata bytes, 0 for none
	Flags        api.PoolFlags

	LowWatermark  int // 0 disables
	HighWatermark int // 0 disables

	MetaDataMemSize int // required size of Memory.MetaData
	BufMemSize      int // required size of Memory.Buffers
}

// align returns the effective alignment.
func (c *Config) align() int {
	if c.BufAlign <= 0 {
		return 1
	}
	return c.BufAlign
}

// GetSize computes the two memory sizes required by Create.
//
//	metadata: MaxBufNum*MetaDataSize + MaxBufNum*RecordSize
//	ring:     MaxBufNum*BufSize + BufAlign   (BufSize must be a multiple of BufAlign)
//	general:  MaxBufNum*(BufSize + BufAlign)
func GetSize(cfg *Config) error {
	if cfg == nil {
		return api.ErrInvalidHandle
	}
	if cfg.BufNum < 0 || cfg.MaxBufNum < 0 || cfg.BufSize < 0 || cfg.BufAlign < 0 || cfg.MetaDataSize < 0 {
		return api.ErrInvalidConfig.WithContext("reason", "negative size")
	}
	if cfg.MaxBufNum > api.MaxBufNum {
		return api.ErrInvalidConfig.WithContext("maxBufNum", cfg.MaxBufNum)
	}
	if cfg.BufNum > cfg.MaxBufNum {
		return api.ErrInvalidConfig.WithContext("bufNum", cfg.BufNum).WithContext("maxBufNum", cfg.MaxBufNum)
	}
	align := cfg.align()
	if align&(align-1) != 0 {
		return api.ErrInvalidConfig.WithContext("bufAlign", cfg.BufAlign)
	}

	cfg.MetaDataMemSize = cfg.MaxBufNum*cfg.MetaDataSize + cfg.MaxBufNum*RecordSize

	if cfg.Flags.RingMode() {
		// no gaps between buffers, one alignment pad in front
		if cfg.BufSize&(align-1) != 0 {
			return api.ErrInvalidConfig.WithContext("bufSize", cfg.BufSize).WithContext("bufAlign", cfg.BufAlign)
		}
		cfg.BufMemSize = cfg.MaxBufNum*cfg.BufSize + cfg.BufAlign
	} else {
		cfg.BufMemSize = cfg.MaxBufNum * (cfg.BufSize + cfg.BufAlign)
	}
	return nil
}

// validate checks the constraints Create adds on top of GetSize.
func (c *Config) validate() error {
	if c.BufNum == 0 || c.BufSize == 0 {
		return api.ErrInvalidConfig.WithContext("reason", "bufNum and bufSize must be positive")
	}
	if err := checkWatermark(c.LowWatermark); err != nil {
		return err
	}
	if err := checkWatermark(c.HighWatermark); err != nil {
		return err
	}
	return GetSize(c)
}

func checkWatermark(v int) error {
	if v < 0 || v > api.MaxWatermark {
		return api.ErrInvalidParameter.WithContext("watermark", v)
	}
	return nil
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
