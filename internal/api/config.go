// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/thenunner/orphanage/internal/domain"
)

// configKeys is the set of keys the API accepts on update; anything else is
// rejected so a typo cannot silently land in the config file.
var configKeys = map[string]struct{}{
	"host": {}, "port": {},
	"logLevel": {}, "logPath": {}, "logMaxSize": {}, "logMaxBackups": {}, "logsDir": {},
	"metricsEnabled": {},
	"enableDeluge":   {}, "delugeUrl": {}, "delugePass": {}, "delugeTorrentFolder": {}, "delugePathIn": {}, "delugePathOut": {},
	"enableQbit": {}, "qbitUrl": {}, "qbitUser": {}, "qbitPass": {}, "qbitTorrentFolder": {}, "qbitPathIn": {}, "qbitPathOut": {},
}

func redact(cfg *domain.Config) *domain.Config {
	out := *cfg
	if out.DelugePass != "" {
		out.DelugePass = "********"
	}
	if out.QbitPass != "" {
		out.QbitPass = "********"
	}
	return &out
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, redact(s.deps.Config.Get()))
}

// handleGetConfigFull returns secrets too; it backs the settings form.
func (s *Server) handleGetConfigFull(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Config.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	for k := range values {
		if _, ok := configKeys[k]; !ok {
			respondError(w, http.StatusBadRequest, "unknown config key: "+k)
			return
		}
	}

	if err := s.deps.Config.Update(values); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, redact(s.deps.Config.Get()))
}
