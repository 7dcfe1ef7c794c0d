// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package relate matches loose files and runaway findings back to the
// torrents that plausibly own them, across every enabled backend.
package relate

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	// TorrentThreshold is the minimum similarity for a torrent-name match.
	TorrentThreshold = 0.85
	// FileThreshold is the minimum similarity for a file-name match.
	FileThreshold = 0.75
)

var (
	episodeSegmentRe = regexp.MustCompile(`(?i)(S\d{1,2})E\d{1,2}\.[^.]+\.`)
	seasonMarkerRe   = regexp.MustCompile(`(?i)S\d{1,2}\.`)
	episodeMarkerRe  = regexp.MustCompile(`(?i)S\d{1,2}E\d{1,2}`)
)

// ratio is normalized Levenshtein similarity in [0,1].
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
}

// Similarity scores two release names in [0,1], case-insensitively. When one
// name is a single episode and the other a season pack, the episode segment
// is reduced to its season marker before a second comparison, and the best
// score wins. Two episode names never get the strip, so siblings from the
// same season stay apart.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	best := ratio(a, b)

	aEpisode := EpisodeMarker(a) != ""
	bEpisode := EpisodeMarker(b) != ""
	switch {
	case aEpisode && !bEpisode && HasSeasonMarker(b):
		if r := ratio(stripEpisodeSegment(a), b); r > best {
			best = r
		}
	case bEpisode && !aEpisode && HasSeasonMarker(a):
		if r := ratio(a, stripEpisodeSegment(b)); r > best {
			best = r
		}
	}
	return best
}

// stripEpisodeSegment reduces "S01E05.Some.Title." style segments to the
// bare season marker so siblings from the same season compare close.
func stripEpisodeSegment(name string) string {
	if episodeSegmentRe.MatchString(name) {
		return episodeSegmentRe.ReplaceAllString(name, "${1}.")
	}
	return name
}

// EpisodeMarker returns the lowercased SxxExx marker of a name, or "".
func EpisodeMarker(name string) string {
	return strings.ToLower(episodeMarkerRe.FindString(name))
}

// HasSeasonMarker reports whether a name carries a bare season marker.
func HasSeasonMarker(name string) bool {
	return seasonMarkerRe.MatchString(name)
}
