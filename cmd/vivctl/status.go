package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// statusServer exposes the running session's health and prometheus metrics
// over HTTP, the way the teacher's cmd/edgectl exposes /health, rebuilt
// over net/http+promhttp rather than gin since two static routes with no
// path params or middleware chain don't need a router.
type statusServer struct {
	startedAt time.Time
	log       zerolog.Logger
}

func newStatusServer(log zerolog.Logger) *statusServer {
	return &statusServer{startedAt: time.Now(), log: log}
}

func (s *statusServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return s.loggingMiddleware(mux)
}

func (s *statusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"uptime":  time.Since(s.startedAt).String(),
		"service": "vivctl",
	})
}

func (s *statusServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// ListenAndServe starts the status endpoint on addr and blocks until it
// fails or the caller's process exits.
func (s *statusServer) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.handler())
}
