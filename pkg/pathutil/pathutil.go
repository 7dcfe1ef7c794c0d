// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathutil provides the path primitives every reconciliation phase
// funnels through. Backend file lists and host directory walks can disagree
// on Unicode normalization form (NFC vs NFD) and on path prefix (container
// vs host mount), so raw string comparison of paths is never safe here.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// invisibleRunes are zero-width characters that occasionally leak into
// torrent file names and break direct existence checks.
var invisibleRunes = []string{"​", "‌", "‍", "\uFEFF"}

// Normalize NFC-normalizes a path and collapses ./.. and duplicate
// separators. Deterministic, no I/O. Empty input stays empty.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(norm.NFC.String(p))
}

func stripInvisible(p string) string {
	for _, r := range invisibleRunes {
		p = strings.ReplaceAll(p, r, "")
	}
	return p
}

// ExistsRobust reports whether path, or any Unicode-normalization variant of
// it, resolves to an existing filesystem entry.
//
// Fast pass: the path as-is, with invisible runes stripped, and the NFC/NFD
// forms of both. Slow pass: list the parent directory and compare each
// entry's normalized name against the normalized target name; if the parent
// itself is missing, look for a Unicode-variant parent directory name under
// the grandparent. I/O errors are treated as "not found".
func ExistsRobust(path string) bool {
	if path == "" {
		return false
	}

	if pathExists(path) {
		return true
	}

	clean := stripInvisible(path)
	if clean != path && pathExists(clean) {
		return true
	}

	for _, candidate := range []string{path, clean} {
		if pathExists(norm.NFC.String(candidate)) || pathExists(norm.NFD.String(candidate)) {
			return true
		}
	}

	parent := filepath.Dir(clean)
	filename := filepath.Base(clean)

	actualParent := ""
	if pathExists(parent) {
		actualParent = parent
	} else {
		// The parent directory name itself may be in a different
		// normalization form than the backend reported.
		grandparent := filepath.Dir(parent)
		parentName := filepath.Base(parent)

		entries, err := os.ReadDir(grandparent)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if unicodeEqual(e.Name(), parentName) {
				actualParent = filepath.Join(grandparent, e.Name())
				break
			}
		}
	}

	if actualParent == "" {
		return false
	}

	entries, err := os.ReadDir(actualParent)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if unicodeEqual(e.Name(), filename) {
			return true
		}
	}
	return false
}

// unicodeEqual compares two names under both NFC and NFD forms.
func unicodeEqual(a, b string) bool {
	if a == b {
		return true
	}
	if norm.NFC.String(a) == norm.NFC.String(b) {
		return true
	}
	return norm.NFD.String(a) == norm.NFD.String(b)
}

func pathExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// RealCanonical resolves symlinks and normalizes the result. When the path
// does not exist or resolution fails it degrades to Normalize(path) so
// callers never have to handle an error for a comparison key.
func RealCanonical(p string) string {
	if p == "" {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return Normalize(p)
	}
	return Normalize(resolved)
}

// MapPrefix translates a path between two namespaces by prefix substitution.
// When Normalize(path) starts with Normalize(from) the prefix is replaced
// with Normalize(to); otherwise the normalized path is returned unchanged.
// Malformed input degrades to normalization only.
func MapPrefix(path, from, to string) string {
	p := Normalize(path)
	f := Normalize(from)
	t := Normalize(to)
	if f == "" || f == "." || !strings.HasPrefix(p, f) {
		return p
	}
	return Normalize(t + p[len(f):])
}
