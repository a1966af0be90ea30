// Package api serves the operator HTTP API: source catalog management,
// status, a status websocket, and commands queued to the control loop.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/output"
	"github.com/bryanchriswhite/PTZView/internal/source"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Version reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	configMgr *config.Manager
	catalog   *source.Catalog
	commands  chan<- event.Event
	upgrader  websocket.Upgrader
	log       *zerolog.Logger

	mu      sync.RWMutex
	status  event.Status
	clients map[string]chan event.Status
	closed  bool

	httpServer *http.Server
}

// NewServer creates a new API server. Commands are posted to commands without
// blocking; the control loop drains them.
func NewServer(configMgr *config.Manager, catalog *source.Catalog, commands chan<- event.Event) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		configMgr: configMgr,
		catalog:   catalog,
		commands:  commands,
		log:       logger.WithComponent("api"),
		clients:   make(map[string]chan event.Status),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // LAN control surface
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Source catalog
	api.HandleFunc("/sources", s.handleGetSources).Methods("GET")
	api.HandleFunc("/sources", s.handleAddSource).Methods("POST")
	api.HandleFunc("/sources/{name}", s.handleRemoveSource).Methods("DELETE")

	// Monitor state
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/status/stream", s.handleStatusStream)

	// Commands
	api.HandleFunc("/source", s.handleConnect).Methods("POST")
	api.HandleFunc("/source", s.handleDisconnect).Methods("DELETE")
	api.HandleFunc("/fullscreen", s.handleSimpleCommand(event.CommandToggleFullscreen)).Methods("POST")
	api.HandleFunc("/ptz/stop", s.handleSimpleCommand(event.CommandStopPTZ)).Methods("POST")
	api.HandleFunc("/exit", s.handleSimpleCommand(event.CommandExit)).Methods("POST")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// MountPreview serves the MJPEG preview at /api/preview and its counters at
// /api/preview/stats. Call before Start.
func (s *Server) MountPreview(p *output.MJPEGPreview) {
	api := s.router.PathPrefix("/api/preview").Subrouter()
	api.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Stats())
	}).Methods("GET")
	api.Handle("", p).Methods("GET")
}

// Handler returns the API handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start binds the port and serves in the background
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", "http://localhost"+addr).Msg("Starting API server")

	go func() {
		defer logger.Recover("api")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("API server stopped")
		}
	}()
	return nil
}

// Close disconnects websocket clients and shuts the server down
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// PublishStatus implements event.StatusSink
func (s *Server) PublishStatus(st event.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = st
	for id, ch := range s.clients {
		select {
		case ch <- st:
		default:
			s.log.Debug().Str("client", id).Msg("Status client is behind, dropping update")
		}
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func success(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HTTP Handlers

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": s.catalog.All(),
		"groups":  s.catalog.Groups(),
	})
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var src config.Source
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.AddSource(src); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.catalog.Replace(s.configMgr.Get().Sources)

	success(w)
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.configMgr.RemoveSource(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.catalog.Replace(s.configMgr.Get().Sources)

	success(w)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) subscribe() (string, chan event.Status, event.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, event.Status{}, false
	}

	id := uuid.NewString()
	ch := make(chan event.Status, 8)
	s.clients[id] = ch
	return id, ch, s.status, true
}

func (s *Server) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.clients[id]; ok {
		close(ch)
		delete(s.clients, id)
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id, updates, current, ok := s.subscribe()
	if !ok {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.unsubscribe(id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	log := s.log.With().Str("client", id).Logger()
	log.Info().Msg("Status client connected")
	defer log.Info().Msg("Status client disconnected")

	// reads only to notice the peer closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(current); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case <-gone:
			return
		case st, ok := <-updates:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

// post queues a command without blocking
func (s *Server) post(w http.ResponseWriter, cmd event.Command) {
	if err := cmd.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.commands <- cmd:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": string(cmd.Kind)})
	default:
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
	}
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.catalog.Lookup(req.Source); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.post(w, event.Command{Kind: event.CommandConnect, Source: req.Source})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.post(w, event.Command{Kind: event.CommandDisconnect})
}

func (s *Server) handleSimpleCommand(kind event.CommandKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.post(w, event.Command{Kind: kind})
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
