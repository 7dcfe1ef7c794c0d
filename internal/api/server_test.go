// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/config"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/internal/relate"
	"github.com/thenunner/orphanage/internal/scan"
)

func testServer(t *testing.T) (*Server, *config.AppConfig) {
	t.Helper()

	appConfig, err := config.New(t.TempDir())
	require.NoError(t, err)

	emptyFactory := func(*domain.Config) map[string]backends.Adapter {
		return map[string]backends.Adapter{}
	}

	s := NewServer(Dependencies{
		Config:     appConfig,
		Supervisor: scan.NewSupervisor(emptyFactory),
		Matcher:    relate.NewMatcher(emptyFactory),
		Version:    "test",
	})
	return s, appConfig
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestStatusIdle(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var status scan.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
}

func TestScanStartWithoutBackends(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/scan/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanStopIdleIsOK(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/scan/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSectionValidation(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodGet, "/api/section", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodGet, "/api/section?key=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodGet, "/api/section?key=transmission-orphans", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodGet, "/api/section?key=qbit-unknownphase", "").Code)
}

func TestSectionEmpty(t *testing.T) {
	t.Parallel()

	s, appConfig := testServer(t)
	require.NoError(t, appConfig.Update(map[string]any{"logsDir": t.TempDir()}))

	rec := doRequest(t, s, http.MethodGet, "/api/section?key=qbit-orphans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int `json:"count"`
		Entries []orphanEntry
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
}

func TestSectionParsesFindings(t *testing.T) {
	t.Parallel()

	s, appConfig := testServer(t)
	logsDir := t.TempDir()
	require.NoError(t, appConfig.Update(map[string]any{"logsDir": logsDir}))

	require.NoError(t, scan.WriteLines(scan.OutputPath(logsDir, "qbit", scan.PhaseOrphans), []string{
		"/data/stray.nfo",
		"deluge|d1|Some.Movie|movies||/data/shared.mkv",
	}))
	require.NoError(t, scan.WriteLines(scan.OutputPath(logsDir, "qbit", scan.PhaseReportCards), []string{
		"qbit|h1|Dead.Torrent|misc||unregistered torrent|/downloads",
	}))

	rec := doRequest(t, s, http.MethodGet, "/api/section?key=qbit-orphans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var orphans struct {
		Count   int           `json:"count"`
		Entries []orphanEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orphans))
	require.Equal(t, 2, orphans.Count)
	assert.Nil(t, orphans.Entries[0].Owner)
	require.NotNil(t, orphans.Entries[1].Owner)
	assert.Equal(t, "deluge", orphans.Entries[1].Owner.Backend)

	rec = doRequest(t, s, http.MethodGet, "/api/section?key=qbit-reportcards", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cards struct {
		Count   int               `json:"count"`
		Entries []reportCardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Equal(t, 1, cards.Count)
	assert.Equal(t, "unregistered torrent", cards.Entries[0].Message)
	assert.Equal(t, "/downloads", cards.Entries[0].SavePath)
}

func TestConfigRedaction(t *testing.T) {
	t.Parallel()

	s, appConfig := testServer(t)
	require.NoError(t, appConfig.Update(map[string]any{"qbitPass": "supersecret"}))

	rec := doRequest(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "supersecret")

	rec = doRequest(t, s, http.MethodGet, "/api/config-full", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "supersecret")
}

func TestConfigUpdateRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/config", `{"nope":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/config", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigUpdatePersists(t *testing.T) {
	t.Parallel()

	s, appConfig := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/config", `{"enableQbit":true,"qbitUrl":"http://qbit:8080"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := appConfig.Get()
	assert.True(t, cfg.EnableQbit)
	assert.Equal(t, "http://qbit:8080", cfg.QbitURL)
}

func TestRelationshipsRequireQuery(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/relationships", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunawayRelationshipMalformed(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/relationships/runaway", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/relationships/runaway", `{"line":"not-a-finding"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
