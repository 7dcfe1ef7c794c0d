// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/thenunner/orphanage/internal/scan"
)

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Supervisor.Status())
}

func (s *Server) handleScanStart(w http.ResponseWriter, _ *http.Request) {
	err := s.deps.Supervisor.Start(s.deps.Config.Get())
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case errors.Is(err, scan.ErrScanInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scan.ErrNoBackendsEnabled):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleScanStop(w http.ResponseWriter, _ *http.Request) {
	// Idempotent: stopping an idle engine is fine.
	s.deps.Supervisor.Stop()
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}
