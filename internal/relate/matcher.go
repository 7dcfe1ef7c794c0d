// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package relate

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/internal/scan"
	"github.com/thenunner/orphanage/pkg/pathutil"
)

// MatchType values carried on a Relationship.
const (
	MatchExact   = "exact"
	MatchFuzzy   = "fuzzy"
	MatchRunaway = "runaway"
)

// Relationship ties a file or finding to a torrent on one of the backends.
type Relationship struct {
	Backend       string   `json:"client"`
	TorrentID     string   `json:"torrentId"`
	TorrentName   string   `json:"torrentName"`
	Label         string   `json:"label"`
	Tags          string   `json:"tags,omitempty"`
	Tracker       string   `json:"tracker,omitempty"`
	SavePath      string   `json:"savePath"`
	FileCount     int      `json:"fileCount"`
	MatchingFiles []string `json:"matchingFiles,omitempty"`
	MatchType     string   `json:"matchType"`
	Similarity    float64  `json:"similarity"`
}

// Matcher runs relationship lookups against fresh adapters built per call,
// so a config edit takes effect on the next lookup.
type Matcher struct {
	factory backends.Factory
}

func NewMatcher(factory backends.Factory) *Matcher {
	return &Matcher{factory: factory}
}

// FindRelationships matches a file name (preferred) or torrent name against
// every enabled backend. Exact matches pair basename and size and require
// the surrounding titles to agree; fuzzy matches score release-name
// similarity. A backend that cannot be queried is skipped, never fatal.
func (m *Matcher) FindRelationships(ctx context.Context, cfg *domain.Config, fileName, torrentName string) []Relationship {
	term := fileName
	if term == "" {
		term = torrentName
	}
	if term == "" {
		return nil
	}

	base := filepath.Base(term)
	var size int64
	if fileName != "" {
		if fi, err := os.Stat(pathutil.Normalize(fileName)); err == nil && fi.Mode().IsRegular() {
			size = fi.Size()
		}
	}

	adapters := m.factory(cfg)
	seen := make(map[string]struct{})
	var out []Relationship

	for _, b := range cfg.EnabledBackends() {
		adapter, ok := adapters[b.Name]
		if !ok {
			continue
		}
		if err := adapter.Login(ctx); err != nil {
			log.Warn().Err(err).Str("backend", b.Name).Msg("relationship lookup: login failed, skipping backend")
			continue
		}
		torrents, err := adapter.Torrents(ctx, nil)
		if err != nil {
			log.Warn().Err(err).Str("backend", b.Name).Msg("relationship lookup: listing failed, skipping backend")
			continue
		}

		for _, t := range torrents {
			key := t.Backend + "|" + t.ID
			if _, dup := seen[key]; dup {
				continue
			}

			rel, matched := m.matchTorrent(ctx, adapter, t, term, base, size)
			if matched {
				seen[key] = struct{}{}
				out = append(out, rel)
			}
		}
	}
	return out
}

func (m *Matcher) matchTorrent(ctx context.Context, adapter backends.Adapter, t backends.TorrentRecord, term, base string, size int64) (Relationship, bool) {
	torrentSim := Similarity(searchName(base), t.Name)
	wantExact := size > 0
	if !wantExact && torrentSim < TorrentThreshold {
		return Relationship{}, false
	}

	files, err := adapter.Files(ctx, t.ID)
	if err != nil {
		log.Warn().Err(err).Str("backend", t.Backend).Str("torrent", t.Name).Msg("relationship lookup: file listing failed")
		return Relationship{}, false
	}

	if wantExact {
		if rel, ok := m.matchExact(ctx, adapter, t, files, term, base, size); ok {
			return rel, true
		}
	}
	if torrentSim < TorrentThreshold {
		return Relationship{}, false
	}
	return m.matchFuzzy(ctx, adapter, t, files, base, torrentSim)
}

// matchExact pairs the query file against torrent contents by basename and
// size, then checks that the surrounding release titles agree so a generic
// name like cover.jpg cannot bridge two unrelated releases.
func (m *Matcher) matchExact(ctx context.Context, adapter backends.Adapter, t backends.TorrentRecord, files []backends.FileEntry, term, base string, size int64) (Relationship, bool) {
	queryTitle := ExtractTitle(filepath.Dir(pathutil.Normalize(term)))
	if filepath.Dir(term) == "." {
		queryTitle = ""
	}

	for _, f := range files {
		if filepath.Base(f.Path) != base || f.Size != size {
			continue
		}
		full := pathutil.Normalize(filepath.Join(t.SavePath, f.Path))
		if queryTitle != "" && !TitlesAgree(ExtractTitle(filepath.Dir(full)), queryTitle) {
			continue
		}
		return Relationship{
			Backend:       t.Backend,
			TorrentID:     t.ID,
			TorrentName:   t.Name,
			Label:         t.Label,
			Tags:          strings.Join(t.Tags, ","),
			Tracker:       m.trackerDomain(ctx, adapter, t.ID),
			SavePath:      t.SavePath,
			FileCount:     len(files),
			MatchingFiles: []string{full},
			MatchType:     MatchExact,
			Similarity:    1,
		}, true
	}
	return Relationship{}, false
}

// matchFuzzy scores the torrent contents against the query name. The best
// file anchors an expansion: sibling files that share its episode marker or
// its leading title tokens are counted as matching too, so a subtitle or
// sample file rides along with its episode.
func (m *Matcher) matchFuzzy(ctx context.Context, adapter backends.Adapter, t backends.TorrentRecord, files []backends.FileEntry, base string, torrentSim float64) (Relationship, bool) {
	query := searchName(base)

	bestSim := 0.0
	bestName := ""
	direct := make(map[string]float64)
	for _, f := range files {
		name := filepath.Base(f.Path)
		sim := Similarity(query, searchName(name))
		direct[f.Path] = sim
		if sim > bestSim {
			bestSim, bestName = sim, name
		}
	}

	var matching []string
	if bestSim >= FileThreshold {
		marker := EpisodeMarker(bestName)
		prefix := titleTokenPrefix(bestName)
		for _, f := range files {
			name := filepath.Base(f.Path)
			switch {
			case direct[f.Path] >= FileThreshold:
			case marker != "" && EpisodeMarker(name) == marker:
			case prefix != "" && strings.HasPrefix(strings.ToLower(name), prefix):
			default:
				continue
			}
			matching = append(matching, pathutil.Normalize(filepath.Join(t.SavePath, f.Path)))
		}
	}

	if len(matching) == 0 {
		// The torrent name matched but no individual file did; keep the
		// relationship and list everything so the caller still sees it.
		for _, f := range files {
			matching = append(matching, pathutil.Normalize(filepath.Join(t.SavePath, f.Path)))
		}
	}

	return Relationship{
		Backend:       t.Backend,
		TorrentID:     t.ID,
		TorrentName:   t.Name,
		Label:         t.Label,
		Tags:          strings.Join(t.Tags, ","),
		Tracker:       m.trackerDomain(ctx, adapter, t.ID),
		SavePath:      t.SavePath,
		FileCount:     len(files),
		MatchingFiles: matching,
		MatchType:     MatchFuzzy,
		Similarity:    torrentSim,
	}, true
}

// FindRunawayRelationship resolves a stored runaway line back to its live
// torrent. Returns nil when the backend is disabled or the torrent is gone.
func (m *Matcher) FindRunawayRelationship(ctx context.Context, cfg *domain.Config, line string) (*Relationship, error) {
	attr, _, err := scan.ParseAttributedLine(line)
	if err != nil {
		return nil, err
	}
	if !cfg.BackendEnabled(attr.Backend) {
		return nil, nil
	}

	adapter, ok := m.factory(cfg)[attr.Backend]
	if !ok {
		return nil, nil
	}
	if err := adapter.Login(ctx); err != nil {
		return nil, err
	}
	torrents, err := adapter.Torrents(ctx, []string{attr.TorrentID})
	if err != nil {
		return nil, err
	}

	for _, t := range torrents {
		if t.ID != attr.TorrentID {
			continue
		}
		files, err := adapter.Files(ctx, t.ID)
		if err != nil {
			log.Warn().Err(err).Str("backend", t.Backend).Str("torrent", t.Name).Msg("runaway lookup: file listing failed")
		}
		return &Relationship{
			Backend:     t.Backend,
			TorrentID:   t.ID,
			TorrentName: t.Name,
			Label:       t.Label,
			Tags:        strings.Join(t.Tags, ","),
			Tracker:     m.trackerDomain(ctx, adapter, t.ID),
			SavePath:    t.SavePath,
			FileCount:   len(files),
			MatchType:   MatchRunaway,
			Similarity:  1,
		}, nil
	}
	return nil, nil
}

func (m *Matcher) trackerDomain(ctx context.Context, adapter backends.Adapter, id string) string {
	trackers, err := adapter.Trackers(ctx, id)
	if err != nil {
		return ""
	}
	for _, tr := range trackers {
		if d := TrackerDomain(tr.URL); d != "" {
			return d
		}
	}
	return ""
}

// TrackerDomain reduces an announce URL to a bare domain: no scheme, no
// port, no www prefix.
func TrackerDomain(raw string) string {
	if raw == "" {
		return ""
	}
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	} else if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

var (
	tokenBoundaryRe = regexp.MustCompile(`(?i)^(19|20)\d{2}$|^s\d{1,2}(e\d{1,2})?$|^\d{3,4}p$`)
	fileExtRe       = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|m4v|ts|wmv|srt|sub|idx|nfo|jpg|jpeg|png|rar|zip|sfv|txt)$`)
)

// searchName drops a trailing media extension so it does not drag down
// similarity. Release tokens like .WEB stay put.
func searchName(name string) string {
	return fileExtRe.ReplaceAllString(name, "")
}

// titleTokenPrefix returns the lowercased dotted title tokens of a release
// name, up to the first year/season/resolution token.
func titleTokenPrefix(name string) string {
	tokens := strings.Split(strings.ToLower(name), ".")
	var title []string
	for _, tok := range tokens {
		if tokenBoundaryRe.MatchString(tok) {
			break
		}
		title = append(title, tok)
	}
	if len(title) == 0 || len(title) == len(tokens) {
		return ""
	}
	return strings.Join(title, ".") + "."
}
