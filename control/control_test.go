// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package control_test

import (
	"testing"

	"github.com/momentics/mediabuf/control"
)

func TestConfigStoreReload(t *testing.T) {
	cs := control.NewConfigStore()
	var seen []any
	cs.OnReload(func() {
		v, _ := cs.Get("high_watermark")
		seen = append(seen, v)
	})
	cs.SetConfig(map[string]any{"high_watermark": 5})
	cs.SetConfig(map[string]any{"high_watermark": 6, "low_watermark": 1})
	if len(seen) != 2 || seen[0] != 5 || seen[1] != 6 {
		t.Errorf("listener saw %v", seen)
	}
	if cs.Version() != 2 {
		t.Errorf("version = %d", cs.Version())
	}
	snap := cs.GetSnapshot()
	snap["low_watermark"] = 99
	if v, _ := cs.Get("low_watermark"); v != 1 {
		t.Error("snapshot aliases the store")
	}
}

func TestMetricsCounters(t *testing.T) {
	mr := control.NewMetricsRegistry()
	if !mr.Updated().IsZero() {
		t.Error("fresh registry reports an update")
	}
	mr.Add("events.full_buffer_added", 2)
	if n := mr.Add("events.full_buffer_added", 3); n != 5 {
		t.Errorf("counter = %d", n)
	}
	mr.Set("queue.fill", 4)
	snap := mr.GetSnapshot()
	if snap["queue.fill"] != 4 || snap["events.full_buffer_added"] != int64(5) {
		t.Errorf("snapshot = %v", snap)
	}
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	dp.RegisterProbe("slots", func() any { return 3 })
	state := dp.DumpState()
	if state["slots"] != 3 {
		t.Errorf("slots probe = %v", state["slots"])
	}
	if n, ok := state["platform.page_size"].(int); !ok || n <= 0 {
		t.Errorf("page size probe = %v", state["platform.page_size"])
	}
	dp.UnregisterProbe("slots")
	if _, ok := dp.DumpState()["slots"]; ok {
		t.Error("probe still registered")
	}
}
