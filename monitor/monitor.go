// File: monitor/monitor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP and WebSocket endpoint streaming queue fill statistics.
//
//	GET /stats  one JSON frame
//	GET /ws     a frame every interval until the client goes away

package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/log"
)

// StatsFunc reads the current statistics of one queue.
type StatsFunc func() (api.QueueStats, error)

// Frame is one snapshot of every registered queue.
type Frame struct {
	Time   int64                     `json:"time"`
	Queues map[string]api.QueueStats `json:"queues"`
	Errors map[string]string         `json:"errors,omitempty"`
}

// Server serves frames over HTTP and WebSocket.
type Server struct {
	interval time.Duration

	mu      sync.RWMutex
	sources map[string]StatsFunc

	upgrader websocket.Upgrader
	clients  atomic.Int64
	sent     atomic.Int64
}

// New creates a server pushing a frame every interval (one second if <= 0).
func New(interval time.Duration) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	return &Server{
		interval: interval,
		sources:  make(map[string]StatsFunc),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// AddQueue registers a queue under name, replacing an earlier one.
func (s *Server) AddQueue(name string, fn StatsFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = fn
}

// RemoveQueue drops a queue.
func (s *Server) RemoveQueue(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, name)
}

// Queues lists the registered names in order.
func (s *Server) Queues() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sources))
	for n := range s.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot reads every queue once.
func (s *Server) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := Frame{Time: time.Now().UnixNano(), Queues: make(map[string]api.QueueStats, len(s.sources))}
	for name, fn := range s.sources {
		st, err := fn()
		if err != nil {
			if f.Errors == nil {
				f.Errors = make(map[string]string)
			}
			f.Errors[name] = err.Error()
			continue
		}
		f.Queues[name] = st
	}
	return f
}

// Stats reports connection counters.
func (s *Server) Stats() map[string]int64 {
	return map[string]int64{
		"clients":     s.clients.Load(),
		"frames_sent": s.sent.Load(),
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.serveStats)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	b, err := sonnet.Marshal(s.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("monitor: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	s.clients.Add(1)
	defer s.clients.Add(-1)
	log.Debug("monitor: client connected", "remote", r.RemoteAddr)

	// reads only to notice the close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.push(conn); err != nil {
			log.Debug("monitor: client dropped", "remote", r.RemoteAddr, "err", err)
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) push(conn *websocket.Conn) error {
	b, err := sonnet.Marshal(s.Snapshot())
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.interval + time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("monitor: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if e := <-errCh; e != nil && !errors.Is(e, http.ErrServerClosed) {
			err = errors.Join(err, e)
		}
		return err
	}
}
