// Package api provides the local HTTP API for controlling and monitoring
// the interceptor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"overbind/internal/config"
	"overbind/internal/interceptor"
	"overbind/internal/remap"
)

// Controller is the interceptor surface the API drives.
type Controller interface {
	Start() error
	Stop() error
	Restart() error
	Status() interceptor.Status
}

// Server provides HTTP API for local control
type Server struct {
	configMgr *config.Manager
	ctl       Controller
	wsMgr     *WSManager

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, ctl Controller) *Server {
	s := &Server{
		configMgr: configMgr,
		ctl:       ctl,
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()
	return s
}

// Handler returns the API routes with auth and panic recovery applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/bindings", s.handleBindings)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves the API on the loopback interface. It blocks until Close.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("API: Starting server on %s", addr)

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("API: Failed to listen on %s: %v", addr, err)
		log.Printf("API: OverBind will continue running without the control API")
		return err
	}

	server := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.httpServer = server
	s.mu.Unlock()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

// Close shuts the HTTP server and the WebSocket hub down
func (s *Server) Close() error {
	s.wsMgr.stop()

	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(context.Background())
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: Recovered from panic: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if token := s.configMgr.Settings().APIToken; token != "" {
			authHeader := r.Header.Get("Authorization")
			// Browsers cannot set headers on a WebSocket upgrade
			queryToken := r.URL.Query().Get("token")
			if authHeader != "Bearer "+token && queryToken != token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// handleStart handles POST /api/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ctl.Start(); err != nil {
		log.Printf("API: Start failed: %v", err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// handleStop handles POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.ctl.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// handleBindings handles GET (read) and PUT (replace) for the bindings
func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.configMgr.Bindings())

	case http.MethodPut:
		var bindings []config.Binding
		if err := json.NewDecoder(r.Body).Decode(&bindings); err != nil {
			http.Error(w, "Invalid bindings data", http.StatusBadRequest)
			return
		}
		if _, err := remap.BuildTable(bindings); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Printf("API: Receiving %d bindings from %s", len(bindings), r.RemoteAddr)
		s.configMgr.SetBindings(bindings)
		s.saveAndRestart(w)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSettings handles GET (read) and PUT (replace) for the settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.configMgr.Settings())

	case http.MethodPut:
		settings := config.DefaultSettings()
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, "Invalid settings data", http.StatusBadRequest)
			return
		}
		if _, err := remap.ParseMashActions(settings.MashActions); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.configMgr.SetSettings(settings); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Printf("API: Receiving settings update from %s", r.RemoteAddr)
		s.saveAndRestart(w)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) saveAndRestart(w http.ResponseWriter) {
	if err := s.configMgr.Save(); err != nil {
		log.Printf("API: Failed to save configuration: %v", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}
	if err := s.ctl.Restart(); err != nil {
		log.Printf("API: Restart after update failed: %v", err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps configuration problems to 400 and everything else to 500
func errorStatus(err error) int {
	var cerr *remap.ConfigError
	if errors.As(err, &cerr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: Failed to write response: %v", err)
	}
}

// FrameChanged streams a frame to WebSocket clients. It never blocks.
func (s *Server) FrameChanged(frame remap.GamepadFrame) {
	s.wsMgr.BroadcastFrame(frame)
}

// MasherChanged streams the masher flag to WebSocket clients.
func (s *Server) MasherChanged(active bool) {
	s.wsMgr.BroadcastMasher(active)
}

// StateChanged streams the interceptor state to WebSocket clients.
func (s *Server) StateChanged(running bool) {
	s.wsMgr.BroadcastStatus()
}
