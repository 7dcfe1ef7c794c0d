// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package relate

import (
	"regexp"
	"strings"

	"github.com/moistari/rls"
)

const titleThreshold = 0.85

var (
	titleSepRe   = regexp.MustCompile(`[.\-_\s]+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// ExtractTitle pulls the release title out of a path. Segments are scanned
// deepest-first; the first one the release parser recognizes with a year or
// season anchor wins, otherwise the deepest non-trivial segment is
// normalized as-is.
func ExtractTitle(path string) string {
	segments := splitSegments(path)
	if len(segments) == 0 {
		return ""
	}

	for i := len(segments) - 1; i >= 0; i-- {
		r := rls.ParseString(segments[i])
		if r.Title != "" && (r.Year > 0 || r.Series > 0) {
			return normalizeTitle(r.Title)
		}
	}
	return normalizeTitle(segments[len(segments)-1])
}

func splitSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		seg = strings.TrimSpace(seg)
		if len(seg) > 2 {
			out = append(out, seg)
		}
	}
	return out
}

// normalizeTitle lowercases and collapses separators so titles compare by
// words rather than release punctuation.
func normalizeTitle(s string) string {
	s = titleSepRe.ReplaceAllString(strings.ToLower(s), " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TitlesAgree reports whether two extracted titles describe the same
// release: equal, one containing the other (both long enough to be
// meaningful), or similar beyond the title threshold.
func TitlesAgree(a, b string) bool {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) >= 5 && len(b) >= 5 && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	return ratio(a, b) >= titleThreshold
}
