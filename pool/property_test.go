// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package pool_test

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/pool"
)

// TestPoolRandomOperations drives a pool with seeded random acquire, fill,
// lock and unlock steps and checks the slot accounting after every step.
func TestPoolRandomOperations(t *testing.T) {
	for _, mode := range []struct {
		name  string
		flags api.PoolFlags
	}{
		{"general", 0},
		{"ring", api.FlagRingBuffer},
	} {
		t.Run(mode.name, func(t *testing.T) {
			p, _ := newPool(t, pool.Config{BufNum: 5, MaxBufNum: 7, BufSize: 32, Flags: mode.flags})
			rng := rand.New(rand.NewSource(20250301))
			locks := map[int]uint32{}
			full := map[int]bool{}
			held := func() (api.Handle, bool) {
				if len(locks) == 0 {
					return api.NilHandle, false
				}
				slots := make([]int, 0, len(locks))
				for s := range locks {
					slots = append(slots, s)
				}
				sort.Ints(slots)
				pick := slots[rng.Intn(len(slots))]
				h, err := p.Handle(pick)
				if err != nil {
					t.Fatal(err)
				}
				return h, true
			}

			for step := 0; step < 20000; step++ {
				switch rng.Intn(4) {
				case 0:
					h, err := p.GetBuffer()
					if errors.Is(err, api.ErrNotAvailable) {
						break
					}
					if err != nil {
						t.Fatalf("step %d: GetBuffer: %v", step, err)
					}
					if locks[h.Slot] != 0 {
						t.Fatalf("step %d: slot %d acquired while held", step, h.Slot)
					}
					locks[h.Slot] = 1
				case 1:
					h, ok := held()
					if !ok || full[h.Slot] {
						break
					}
					_ = p.SetFull(h, true)
					if err := p.BufferFilled(h); err != nil {
						t.Fatalf("step %d: BufferFilled: %v", step, err)
					}
					full[h.Slot] = true
				case 2:
					h, ok := held()
					if !ok {
						break
					}
					if err := p.LockBuffer(h); err != nil {
						t.Fatalf("step %d: LockBuffer: %v", step, err)
					}
					locks[h.Slot]++
				case 3:
					h, ok := held()
					if !ok {
						break
					}
					if err := p.UnlockBuffer(h); err != nil {
						t.Fatalf("step %d: UnlockBuffer: %v", step, err)
					}
					if locks[h.Slot]--; locks[h.Slot] == 0 {
						delete(locks, h.Slot)
						delete(full, h.Slot)
					}
				}

				locked, isFull := 0, 0
				for _, info := range p.Slots() {
					if info.LockCount > 0 {
						locked++
					}
					if info.IsFull {
						isFull++
					}
					if info.LockCount != locks[info.Slot] {
						t.Fatalf("step %d: slot %d lock count %d, want %d", step, info.Slot, info.LockCount, locks[info.Slot])
					}
				}
				if p.FreeBufNum()+locked != p.BufNum() {
					t.Fatalf("step %d: free=%d locked=%d bufNum=%d", step, p.FreeBufNum(), locked, p.BufNum())
				}
				if p.FillLevel() != isFull || isFull != len(full) {
					t.Fatalf("step %d: fill=%d full slots=%d model=%d", step, p.FillLevel(), isFull, len(full))
				}
				if p.Index() < 0 || p.Index() >= p.BufNum() {
					t.Fatalf("step %d: index %d outside [0, %d)", step, p.Index(), p.BufNum())
				}
			}
		})
	}
}
