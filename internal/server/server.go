// Package server runs the authoritative game: a fixed-rate loop over the
// world and one websocket connection per player.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"tankarena/internal/config"
	"tankarena/internal/eventlog"
	"tankarena/pkg/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	qrSize          = 256
	killLeaders     = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server ties the hub, the game and the HTTP routes together
type Server struct {
	cfg    config.ServerConfig
	hub    *Hub
	game   *Game
	events *eventlog.Recorder
}

// New creates a Server. events may be nil to disable the event log.
func New(cfg config.ServerConfig, events *eventlog.Recorder) *Server {
	hub := NewHub(cfg.MaxConns, cfg.MaxConnsPIP)
	return &Server{
		cfg:    cfg,
		hub:    hub,
		game:   NewGame(hub, events),
		events: events,
	}
}

// Game returns the server's game loop
func (s *Server) Game() *Game {
	return s.game
}

// Routes configures HTTP routes
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.cfg.Path, s.handleStream)
	mux.HandleFunc("GET /join.png", s.handleJoinQR)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).WithField("remote", ip).Warn("upgrade failed")
		return
	}

	s.hub.TrackConnect(ip)
	defer s.hub.TrackDisconnect(ip)

	NewClient(s.hub, s.game, conn, ip).Serve(r.Context())
}

// handleJoinQR renders the websocket URL of this server as a QR code
func (s *Server) handleJoinQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode("ws://"+r.Host+s.cfg.Path, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

type statsResponse struct {
	Stats
	Events  map[string]int       `json:"events,omitempty"`
	Leaders []eventlog.KillCount `json:"leaders,omitempty"`
	Dropped int                  `json:"dropped_events"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Stats: s.game.Stats(), Dropped: s.events.Dropped()}
	if db := s.events.DB(); db != nil {
		var err error
		if resp.Events, err = db.EventCounts(); err != nil {
			logger.Log.WithError(err).Warn("stats: event counts")
		}
		if resp.Leaders, err = db.KillLeaders(killLeaders); err != nil {
			logger.Log.WithError(err).Warn("stats: kill leaders")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Run opens the event log if configured, then serves until ctx is
// cancelled and shuts everything down in order.
func Run(ctx context.Context, cfg config.ServerConfig) error {
	var events *eventlog.Recorder
	if cfg.DB != "" {
		db, err := eventlog.OpenDB(cfg.DB)
		if err != nil {
			return fmt.Errorf("event log: %w", err)
		}
		defer db.Close()
		events = eventlog.NewRecorder(db)
		defer events.Stop()
	}

	s := New(cfg, events)
	g, gctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Routes(),
		// websocket handlers outlive Shutdown; they watch this context
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.game.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Log.WithField("addr", cfg.Listen).Info("server starting")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}
