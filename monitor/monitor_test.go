// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package monitor_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/log"
	"github.com/momentics/mediabuf/monitor"
)

func init() {
	log.SetOutput(io.Discard, "error")
}

func fixed(level int) monitor.StatsFunc {
	return func() (api.QueueStats, error) {
		return api.QueueStats{CurrFillLevel: level, MaxFillLevel: level + 1}, nil
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := monitor.New(time.Second)
	s.AddQueue("video", fixed(3))
	s.AddQueue("broken", func() (api.QueueStats, error) { return api.QueueStats{}, errors.New("destroyed") })
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var f monitor.Frame
	if err := sonnet.Unmarshal(body, &f); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if f.Queues["video"].CurrFillLevel != 3 {
		t.Errorf("frame = %+v", f)
	}
	if f.Errors["broken"] != "destroyed" {
		t.Errorf("errors = %v", f.Errors)
	}
	if got := s.Queues(); len(got) != 2 || got[0] != "broken" {
		t.Errorf("queues = %v", got)
	}
}

func TestWebSocketStream(t *testing.T) {
	s := monitor.New(10 * time.Millisecond)
	level := 0
	s.AddQueue("audio", func() (api.QueueStats, error) {
		level++
		return api.QueueStats{CurrFillLevel: level}, nil
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	prev := 0
	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if typ != websocket.TextMessage {
			t.Fatalf("message type %d", typ)
		}
		var f monitor.Frame
		if err := sonnet.Unmarshal(msg, &f); err != nil {
			t.Fatal(err)
		}
		cur := f.Queues["audio"].CurrFillLevel
		if cur <= prev {
			t.Errorf("frame %d not fresh: %d after %d", i, cur, prev)
		}
		prev = cur
	}
	if s.Stats()["frames_sent"] < 3 {
		t.Errorf("stats = %v", s.Stats())
	}
}
