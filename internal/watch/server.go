package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/solarstat-cli/internal/report"
)

// ReadinessChecker reports whether the daemon has produced a report.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReportSource returns the latest report, or nil before the first run.
type ReportSource interface {
	Last() *report.Report
}

// Source is what the server reports on.
type Source interface {
	ReadinessChecker
	ReportSource
}

// Server exposes health, readiness, metrics and the latest report over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /report routes. A nil gatherer serves the default Prometheus registry.
func NewServer(addr string, src Source, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	metrics := promhttp.Handler()
	if gatherer != nil {
		metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(src))
	mux.HandleFunc("GET /report", handleReport(src))
	mux.Handle("GET /metrics", metrics)

	return s
}

// Listen binds the configured address, so callers can report a busy port
// before any work starts.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln. Returns http.ErrServerClosed on graceful
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server starting", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
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

func handleReport(src ReportSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rep := src.Last()
		if rep == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report yet"})
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
