// Package api exposes the HTTP surface of the watcher: liveness plus the
// boilerplate endpoints bots keep probing for.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wires the health endpoints.
type Server struct {
	router chi.Router
	logger *zap.Logger

	mu  sync.Mutex
	srv *http.Server
}

// NewServer constructs a Server with its routes.
func NewServer(logger *zap.Logger) *Server {
	s := &Server{logger: logger}

	r := chi.NewRouter()
	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Get("/favicon.ico", s.favicon)
	r.Get("/robots.txt", s.robots)
	r.Get("/.well-known/security.txt", s.securityTxt)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving on the given port until Shutdown is called.
func (s *Server) ListenAndServe(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.Int("port", port))
	return srv.ListenAndServe()
}

// Shutdown gracefully stops a running server. A server that was never started
// is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	s.writeText(w, http.StatusOK, "rentalwatch is running\n")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeText(w, http.StatusOK, "ok\n")
}

func (s *Server) favicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) robots(w http.ResponseWriter, _ *http.Request) {
	s.writeText(w, http.StatusOK, "User-agent: *\nDisallow: /\n")
}

func (s *Server) securityTxt(w http.ResponseWriter, _ *http.Request) {
	s.writeText(w, http.StatusOK, "")
}

func (s *Server) writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("response write failed", zap.Error(err))
	}
}
