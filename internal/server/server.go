// Package server provides the HTTP server for the Orbit viewer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/media"
	"github.com/ayusman/orbit/internal/server/api"
	"github.com/ayusman/orbit/internal/store"
)

// StateSource publishes the frame loop status and accepts slot list changes.
type StateSource interface {
	Status() app.Status
	Subscribe() (<-chan app.Status, func())
	SetSlots(ids []string)
}

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	CORSOrigins []string
	Store       *store.Store
	Media       *media.Library
	Camera      capture.Camera
	State       StateSource
}

// Server represents the HTTP server for the Orbit application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	hub     *StateHub
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()

	origins := config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(middleware.Recoverer(s.mux))

	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.config.State != nil {
		s.hub = NewStateHub(s.config.State)
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.Handle("/api/state/ws", s.hub)
	}

	if s.config.Store != nil {
		var sink api.SlotSink
		if s.config.State != nil {
			sink = s.config.State
		}
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store, s.config.Media, sink))

		slots := api.NewSlotsHandler(s.config.Store, s.config.Media)
		s.mux.Handle("/api/slots", slots)
		s.mux.Handle("/api/slots/", slots)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Hub returns the state WebSocket hub, or nil without a state source.
func (s *Server) Hub() *StateHub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleState handles GET /api/state and returns the latest frame loop status.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.config.State.Status()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
