// Package server hosts the browser viewer: the self-contained HTML page, a
// JSON snapshot endpoint with an optional redis cache in front of the
// backend, prometheus metrics, and a websocket that streams layout frames
// per simulation tick.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenpipeline/archview/internal/metrics"
	"github.com/zenpipeline/archview/pkg/client"
	"github.com/zenpipeline/archview/pkg/layout"
	"github.com/zenpipeline/archview/pkg/render"
	"github.com/zenpipeline/archview/pkg/view"
)

// SnapshotCache is the slice of the redis cache the server needs; nil
// disables caching.
type SnapshotCache interface {
	Get(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error)
	Set(ctx context.Context, snap client.Snapshot) error
	Invalidate(ctx context.Context, repoID uuid.UUID) error
}

// Server encapsulates the viewer HTTP server.
type Server struct {
	backend view.Backend
	cache   SnapshotCache
	log     *slog.Logger
	layout  layout.Options
	server  *http.Server
}

// NewServer wires routes and middleware. cache may be nil; logger may be
// nil for slog.Default.
func NewServer(backend view.Backend, cache SnapshotCache, opts layout.Options, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		cache:   cache,
		log:     logger,
		layout:  opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/graph/{repo}", s.handleSnapshot)
	mux.HandleFunc("GET /view/{repo}", s.handleView)
	mux.HandleFunc("GET /ws/layout/{repo}", s.handleLayoutWS)

	if addr == "" {
		addr = ":8099"
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withLogging(withRecovery(withSecureHeaders(mux))),
		ReadTimeout:  5 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	return s
}

// Handler exposes the full middleware stack, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.log.Info("viewer server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("viewer server stopping")
	return s.server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex points a browser at the per-repository routes.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><title>archview</title>
<h1>archview viewer</h1>
<p>Open <code>/view/{repository-id}</code> for the interactive graph,
<code>/api/graph/{repository-id}</code> for the JSON snapshot.</p>`)
}

// handleSnapshot serves the current snapshot as JSON, going through the
// cache when one is configured.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	repoID, err := uuid.Parse(r.PathValue("repo"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid repository id"})
		return
	}

	snap, err := s.snapshot(r.Context(), repoID)
	if err != nil {
		s.log.Error("snapshot fetch failed", "repository_id", repoID, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, client.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) snapshot(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx, repoID); err == nil {
			metrics.FetchTotal.WithLabelValues("snapshot_cache", "hit").Inc()
			return snap, nil
		}
		metrics.FetchTotal.WithLabelValues("snapshot_cache", "miss").Inc()
	}

	snap, err := s.backend.FetchSnapshot(ctx, repoID)
	if err != nil {
		return client.Snapshot{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			// Serving beats caching; log and move on.
			s.log.Warn("snapshot cache write failed", "repository_id", repoID, "error", err)
		}
	}
	return snap, nil
}

// handleView serves the HTML viewer wired to this server's websocket.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	repoID, err := uuid.Parse(r.PathValue("repo"))
	if err != nil {
		http.Error(w, "invalid repository id", http.StatusBadRequest)
		return
	}

	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	liveURL := fmt.Sprintf("%s://%s/ws/layout/%s", scheme, r.Host, repoID)

	// The initial frame is empty; the websocket delivers real positions.
	empty := layout.Frame{Width: s.layout.Width, Height: s.layout.Height, State: layout.StateIdle.String()}
	page, err := render.HTML(empty, render.Options{Title: "Dependency Graph " + repoID.String()}, liveURL)
	if err != nil {
		s.log.Error("viewer render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:;")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, `{"detail":"internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade work through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
