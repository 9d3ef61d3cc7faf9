// Package httpadapter exposes the engine over HTTP: health, readiness, and
// metrics endpoints plus the overlay control surface render clients use
// (feature ingest, state snapshots, selection, sequence playback, cursor
// seeking).
package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-overlay/internal/engine"
	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/timecursor"
)

// maxBodyBytes caps feature-collection uploads.
const maxBodyBytes = 16 << 20

// Server exposes the overlay engine's HTTP surface.
type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	sink       *render.MemorySink
	cursor     timecursor.Control
	logger     *slog.Logger
}

// NewServer creates the HTTP server. cursor may be nil when the service
// does not own one; the seek endpoint then responds 404.
func NewServer(addr string, eng *engine.Engine, sink *render.MemorySink, cursor timecursor.Control, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: eng,
		sink:   sink,
		cursor: cursor,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/overlays", s.handleSnapshot)
	mux.HandleFunc("PUT /v1/overlays/{type}", s.handleRender)
	mux.HandleFunc("DELETE /v1/overlays/{type}", s.handleClearType)
	mux.HandleFunc("DELETE /v1/overlays", s.handleClearAll)

	mux.HandleFunc("PUT /v1/selection", s.handleSelect)
	mux.HandleFunc("DELETE /v1/selection", s.handleDeselect)

	mux.HandleFunc("POST /v1/sequences", s.handleSequence)
	mux.HandleFunc("DELETE /v1/sequences", s.handleSequenceExit)

	mux.HandleFunc("POST /v1/cursor/seek", s.handleSeek)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sink.Snapshot())
}

// handleRender ingests a feature collection for the path's hazard type. An
// empty collection tears the overlay down, mirroring the dispatcher
// contract.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	t := hazard.Type(r.PathValue("type"))
	if !t.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown hazard type"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}

	collection, err := hazard.ParseCollection(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if collection.Type != t {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hazard type mismatch between path and body"})
		return
	}

	drew := s.engine.Render(t, collection.Features)
	writeJSON(w, http.StatusOK, map[string]any{"drew": drew, "features": len(collection.Features)})
}

func (s *Server) handleClearType(w http.ResponseWriter, r *http.Request) {
	t := hazard.Type(r.PathValue("type"))
	if !t.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown hazard type"})
		return
	}
	s.engine.ClearType(t)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAll(w http.ResponseWriter, _ *http.Request) {
	s.engine.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	HazardType hazard.Type `json:"hazard_type"`
	EventID    string      `json:"event_id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.HazardType.Valid() || req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hazard_type and event_id are required"})
		return
	}
	s.engine.Select(req.HazardType, req.EventID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeselect(w http.ResponseWriter, _ *http.Request) {
	s.engine.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.HazardType.Valid() || req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hazard_type and event_id are required"})
		return
	}
	// Fire and forget: resolution outcome arrives via the snapshot.
	s.engine.RequestSequence(context.WithoutCancel(r.Context()), req.HazardType, req.EventID)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSequenceExit(w http.ResponseWriter, _ *http.Request) {
	s.engine.ExitSequence()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if s.cursor == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cursor owned by this service"})
		return
	}
	var req struct {
		Time time.Time `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Time.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "time is required"})
		return
	}
	s.cursor.Seek(req.Time)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
