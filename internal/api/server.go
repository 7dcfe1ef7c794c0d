// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thenunner/orphanage/internal/config"
	"github.com/thenunner/orphanage/internal/relate"
	"github.com/thenunner/orphanage/internal/scan"
)

// Dependencies wires the server's collaborators.
type Dependencies struct {
	Config     *config.AppConfig
	Supervisor *scan.Supervisor
	Matcher    *relate.Matcher
	Registry   *prometheus.Registry
	Version    string
}

type trackerCacheEntry struct {
	rel *relate.Relationship
	at  time.Time
}

// Server is the HTTP API.
type Server struct {
	deps Dependencies

	cacheMu      sync.Mutex
	trackerCache map[string]trackerCacheEntry
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		deps:         deps,
		trackerCache: make(map[string]trackerCacheEntry),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/api/healthz", s.handleHealthz)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/scan/start", s.handleScanStart)
	r.Post("/api/scan/stop", s.handleScanStop)
	r.Get("/api/section", s.handleSection)
	r.Get("/api/relationships", s.handleRelationships)
	r.Post("/api/relationships/runaway", s.handleRunawayRelationship)
	r.Get("/api/config", s.handleGetConfig)
	r.Get("/api/config-full", s.handleGetConfigFull)
	r.Post("/api/config", s.handleUpdateConfig)

	if s.deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Serve runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	cfg := s.deps.Config.Get()
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.deps.Version})
}
