// Package http exposes the operational and dashboard-facing HTTP surface:
// health, readiness, metrics, the JSON status API, and the WebSocket feed.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/coastal-threat-service/internal/adapter/postgres"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StatusProvider supplies the current pipeline snapshot.
type StatusProvider interface {
	Running() bool
}

// AlertReader lists recently persisted alerts. Optional; without it the
// recent-alerts route answers 404.
type AlertReader interface {
	RecentAlerts(ctx context.Context, limit int) ([]postgres.StoredAlert, error)
}

// WebSocketHandler upgrades dashboard connections.
type WebSocketHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server hosts all HTTP routes for the service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	statsFn func(running bool) stats.Snapshot
	status  StatusProvider
	alerts  AlertReader
	regions map[string][]string
}

// Options wires the optional route dependencies.
type Options struct {
	Ready   ReadinessChecker
	Status  StatusProvider
	StatsFn func(running bool) stats.Snapshot
	Alerts  AlertReader
	Hub     WebSocketHandler
	Regions map[string][]string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		statsFn: opts.StatsFn,
		status:  opts.Status,
		alerts:  opts.Alerts,
		regions: opts.Regions,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/alerts/recent", s.handleRecentAlerts)
	if opts.Hub != nil {
		mux.HandleFunc("GET /ws", opts.Hub.ServeWS)
	}

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

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statsFn(s.status.Running()))
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"regions": s.regions,
	})
}

func (s *Server) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "alert storage not configured"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer between 1 and 200"})
			return
		}
		limit = parsed
	}

	alerts, err := s.alerts.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent alerts query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if alerts == nil {
		alerts = []postgres.StoredAlert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
