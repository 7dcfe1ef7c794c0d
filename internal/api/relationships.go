// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/thenunner/orphanage/internal/scan"
)

// handleRelationships matches a query file or torrent name against every
// enabled backend. Query params: filename, torrentName (at least one
// required).
func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("filename")
	torrent := r.URL.Query().Get("torrentName")
	if file == "" && torrent == "" {
		respondError(w, http.StatusBadRequest, "filename or torrentName query param required")
		return
	}

	rels := s.deps.Matcher.FindRelationships(r.Context(), s.deps.Config.Get(), file, torrent)
	respondJSON(w, http.StatusOK, map[string]any{"count": len(rels), "relationships": rels})
}

// handleRunawayRelationship resolves a stored runaway finding line to its
// live torrent.
func (s *Server) handleRunawayRelationship(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Line string `json:"line"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Line == "" {
		respondError(w, http.StatusBadRequest, "JSON body with a line field required")
		return
	}

	rel, err := s.deps.Matcher.FindRunawayRelationship(r.Context(), s.deps.Config.Get(), body.Line)
	if err != nil {
		if errors.Is(err, scan.ErrMalformedLine) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if rel == nil {
		respondJSON(w, http.StatusOK, map[string]any{"relationship": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"relationship": rel})
}
