package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"github.com/gridtown/trafficsim/pkg/sim"
)

// Server runs the simulation loop and serves read-only views of it. The
// world is owned by the tick goroutine; handlers only ever see marshaled
// snapshots.
type Server struct {
	world *sim.World
	hub   *Hub
	log   *log.Logger

	mu     sync.RWMutex
	latest []byte
}

func New(w *sim.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		world: w,
		hub:   NewHub(),
		log:   logger,
	}
}

// Run drives the simulation at its tick rate and broadcasts a snapshot per
// tick until the context is canceled.
func (s *Server) Run(ctx context.Context) {
	interval := time.Duration(float64(time.Second) * s.world.Dt)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.world.Step()
			s.publish()
		}
	}
}

func (s *Server) publish() {
	snap := TakeSnapshot(s.world)
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("snapshot marshal failed", "err", err)
		return
	}
	s.mu.Lock()
	s.latest = data
	s.mu.Unlock()
	s.hub.Broadcast(data)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()
	if data == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	s.hub.Add(conn)
	s.log.Debug("websocket client connected", "clients", s.hub.Count())

	// Hold the connection open until the client goes away; broadcasts
	// happen from the tick loop.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	s.hub.Remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// ListenAndServe runs the simulation and the HTTP listener together until
// the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.Handler()}

	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	s.log.Info("serving", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
