// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"github.com/momentics/mediabuf/queue"
)

// Producer fills empty buffers with numbered frames. Each frame starts with
// its producer id (4 bytes) and sequence number (8 bytes), little endian.
type Producer struct {
	ID       uint32
	Q        *queue.Sync
	Interval time.Duration // pause between frames, zero for none

	seq uint64
}

// FrameHeaderSize is the prefix Producer writes into every buffer.
const FrameHeaderSize = 12

// Run produces until ctx is done or limit frames were queued (limit <= 0
// means no limit). It returns the number of frames produced.
func (p *Producer) Run(ctx context.Context, limit int) (int, error) {
	n := 0
	for limit <= 0 || n < limit {
		h, err := p.Q.WaitEmptyBuffer(ctx)
		if err != nil {
			return n, ignoreDone(err)
		}
		b, err := p.Q.Bytes(h)
		if err != nil {
			return n, err
		}
		if len(b) >= FrameHeaderSize {
			binary.LittleEndian.PutUint32(b, p.ID)
			binary.LittleEndian.PutUint64(b[4:], p.seq)
		}
		p.seq++
		if err := p.Q.PutFullBuffer(h); err != nil {
			return n, err
		}
		n++
		if p.Interval > 0 {
			select {
			case <-ctx.Done():
				return n, nil
			case <-time.After(p.Interval):
			}
		}
	}
	return n, nil
}

// Consumer drains full buffers and checks that each producer's sequence
// numbers arrive in order.
type Consumer struct {
	Q    *queue.Sync
	Hold time.Duration // how long a buffer stays locked, simulating work

	consumed  atomic.Int64
	reordered atomic.Int64
	last      map[uint32]uint64
}

// Run consumes until ctx is done or limit frames were released.
func (c *Consumer) Run(ctx context.Context, limit int) (int, error) {
	if c.last == nil {
		c.last = make(map[uint32]uint64)
	}
	n := 0
	for limit <= 0 || n < limit {
		h, err := c.Q.WaitFullBuffer(ctx)
		if err != nil {
			return n, ignoreDone(err)
		}
		if b, err := c.Q.Bytes(h); err == nil && len(b) >= FrameHeaderSize {
			id := binary.LittleEndian.Uint32(b)
			seq := binary.LittleEndian.Uint64(b[4:])
			if prev, ok := c.last[id]; ok && seq <= prev {
				c.reordered.Add(1)
			}
			c.last[id] = seq
		}
		if c.Hold > 0 {
			time.Sleep(c.Hold)
		}
		if err := c.Q.ReleaseBuffer(h); err != nil {
			return n, err
		}
		n++
		c.consumed.Add(1)
	}
	return n, nil
}

// Consumed is safe to read while Run is active.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }

// Reordered counts frames seen out of sequence for their producer.
func (c *Consumer) Reordered() int64 { return c.reordered.Load() }

func ignoreDone(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
