// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/relate"
	"github.com/thenunner/orphanage/internal/scan"
)

const trackerCacheTTL = 5 * time.Minute

type orphanEntry struct {
	Path  string       `json:"path"`
	Owner *ownerRecord `json:"owner,omitempty"`
}

type ownerRecord struct {
	Backend     string `json:"client"`
	TorrentID   string `json:"torrentId"`
	TorrentName string `json:"torrentName"`
	Label       string `json:"label"`
	Tags        string `json:"tags,omitempty"`
}

type runawayGroup struct {
	Torrent      ownerRecord          `json:"torrent"`
	Paths        []string             `json:"paths"`
	Relationship *relate.Relationship `json:"relationship,omitempty"`
}

type reportCardEntry struct {
	Backend     string `json:"client"`
	TorrentID   string `json:"torrentId"`
	TorrentName string `json:"torrentName"`
	Label       string `json:"label"`
	Tags        string `json:"tags,omitempty"`
	Message     string `json:"message"`
	SavePath    string `json:"savePath"`
}

func ownerFromAttribution(attr scan.Attribution) ownerRecord {
	return ownerRecord{
		Backend:     attr.Backend,
		TorrentID:   attr.TorrentID,
		TorrentName: attr.TorrentName,
		Label:       attr.Label,
		Tags:        attr.Tags,
	}
}

// handleSection serves one findings file, keyed "<backend>-<phase>" like
// "deluge-orphans". Runaways come back grouped per torrent with a cached
// live-tracker lookup.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		respondError(w, http.StatusBadRequest, "key must be <backend>-<phase>")
		return
	}
	backend, phase := parts[0], parts[1]

	if backend != backends.NameDeluge && backend != backends.NameQbit {
		respondError(w, http.StatusBadRequest, "unknown backend: "+backend)
		return
	}
	switch phase {
	case scan.PhaseOrphans, scan.PhaseRunaways, scan.PhaseReportCards:
	default:
		respondError(w, http.StatusBadRequest, "unknown phase: "+phase)
		return
	}

	cfg := s.deps.Config.Get()
	lines, err := scan.ReadLines(scan.OutputPath(cfg.LogsDir, backend, phase))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch phase {
	case scan.PhaseOrphans:
		entries := make([]orphanEntry, 0, len(lines))
		for _, line := range lines {
			if attr, path, err := scan.ParseAttributedLine(line); err == nil {
				owner := ownerFromAttribution(attr)
				entries = append(entries, orphanEntry{Path: path, Owner: &owner})
			} else {
				entries = append(entries, orphanEntry{Path: line})
			}
		}
		respondJSON(w, http.StatusOK, map[string]any{"key": key, "count": len(entries), "entries": entries})

	case scan.PhaseRunaways:
		groups := s.groupRunaways(r, lines)
		respondJSON(w, http.StatusOK, map[string]any{"key": key, "count": len(lines), "groups": groups})

	case scan.PhaseReportCards:
		entries := make([]reportCardEntry, 0, len(lines))
		for _, line := range lines {
			fields := strings.SplitN(line, "|", 7)
			if len(fields) < 7 {
				log.Warn().Str("line", line).Msg("skipping malformed report card line")
				continue
			}
			entries = append(entries, reportCardEntry{
				Backend:     fields[0],
				TorrentID:   fields[1],
				TorrentName: fields[2],
				Label:       fields[3],
				Tags:        fields[4],
				Message:     fields[5],
				SavePath:    fields[6],
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"key": key, "count": len(entries), "entries": entries})
	}
}

// groupRunaways collapses one line per missing file into one group per
// torrent. The live relationship lookup (tracker, current save path) is
// cached per torrent so a large section does not hammer the daemons.
func (s *Server) groupRunaways(r *http.Request, lines []string) []runawayGroup {
	cfg := s.deps.Config.Get()

	order := make([]string, 0)
	byKey := make(map[string]*runawayGroup)
	firstLine := make(map[string]string)

	for _, line := range lines {
		attr, path, err := scan.ParseAttributedLine(line)
		if err != nil {
			log.Warn().Str("line", line).Msg("skipping malformed runaway line")
			continue
		}

		key := attr.Backend + "|" + attr.TorrentID
		g, ok := byKey[key]
		if !ok {
			g = &runawayGroup{Torrent: ownerFromAttribution(attr)}
			byKey[key] = g
			order = append(order, key)
			firstLine[key] = line
		}
		g.Paths = append(g.Paths, path)
	}

	groups := make([]runawayGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]

		s.cacheMu.Lock()
		entry, cached := s.trackerCache[key]
		s.cacheMu.Unlock()

		if cached && time.Since(entry.at) < trackerCacheTTL {
			g.Relationship = entry.rel
		} else {
			rel, err := s.deps.Matcher.FindRunawayRelationship(r.Context(), cfg, firstLine[key])
			if err != nil {
				log.Warn().Err(err).Str("torrent", g.Torrent.TorrentName).Msg("runaway relationship lookup failed")
			} else {
				g.Relationship = rel
				s.cacheMu.Lock()
				s.trackerCache[key] = trackerCacheEntry{rel: rel, at: time.Now()}
				s.cacheMu.Unlock()
			}
		}

		groups = append(groups, *g)
	}
	return groups
}
