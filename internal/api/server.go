// Package api provides the HTTP surface of the dashboard backend. All
// routes are thin glue over the telemetry monitor, the intensity source
// and the emissions engine.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"codeberg.org/mutker/gpucarbon/internal/emissions"
	"codeberg.org/mutker/gpucarbon/internal/gpu"
	"codeberg.org/mutker/gpucarbon/internal/history"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	"codeberg.org/mutker/gpucarbon/internal/recorder"
)

const requestTimeout = 30 * time.Second

// Server wires the engine components to HTTP routes. Instances are
// constructed at startup and passed in explicitly; the server owns no
// component lifecycle.
type Server struct {
	monitor  gpu.Monitor
	source   carbon.Source
	engine   *emissions.Engine
	ring     *history.Ring
	recorder recorder.Recorder
	now      func() time.Time

	mu   sync.Mutex
	zone string
}

// Option customizes a Server.
type Option func(*Server)

// WithClock injects the clock used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates an API server over the given components. defaultZone
// is the intensity zone used when a request does not name one.
func NewServer(
	monitor gpu.Monitor,
	source carbon.Source,
	engine *emissions.Engine,
	ring *history.Ring,
	rec recorder.Recorder,
	defaultZone string,
	opts ...Option,
) *Server {
	s := &Server{
		monitor:  monitor,
		source:   source,
		engine:   engine,
		ring:     ring,
		recorder: rec,
		now:      time.Now,
		zone:     defaultZone,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/metrics", s.handleMetrics)
	r.Post("/job/start", s.handleJobStart)
	r.Post("/job/stop", s.handleJobStop)
	r.Get("/health", s.handleHealth)
	r.Get("/history", s.handleHistory)
	r.Get("/history/stats", s.handleHistoryStats)
	r.Get("/export/sessions", s.handleExport)
	r.Post("/region/{code}", s.handleRegion)

	return r
}

func (s *Server) currentZone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone
}

func (s *Server) setZone(zone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone = zone
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
