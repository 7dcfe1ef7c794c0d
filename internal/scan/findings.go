// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scan implements the reconciliation engine: the phase executors
// for orphans, runaways, and report cards, the runner that sequences them,
// and the supervisor that owns the single active run.
package scan

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/thenunner/orphanage/internal/backends"
)

// ErrMalformedLine is returned when a finding line does not carry the
// expected pipe-separated fields.
var ErrMalformedLine = errors.New("malformed finding line")

// Attribution identifies the torrent that owns a file.
type Attribution struct {
	Backend     string
	TorrentID   string
	TorrentName string
	Label       string
	Tags        string
}

func attributionFor(t backends.TorrentRecord) Attribution {
	return Attribution{
		Backend:     t.Backend,
		TorrentID:   t.ID,
		TorrentName: t.Name,
		Label:       t.Label,
		Tags:        strings.Join(t.Tags, ","),
	}
}

// AttributionIndex maps canonical file paths to their owning torrent. It is
// built during orphan phases and deliberately not cleared between backends
// within a run, so a file owned by the other daemon is reported as
// "owned elsewhere" instead of a bare orphan. Written only by the scan
// worker; discarded when the run ends.
type AttributionIndex struct {
	byPath map[string]Attribution
}

func NewAttributionIndex() *AttributionIndex {
	return &AttributionIndex{byPath: make(map[string]Attribution)}
}

func (idx *AttributionIndex) Add(canonicalPath string, attr Attribution) {
	idx.byPath[canonicalPath] = attr
}

func (idx *AttributionIndex) Lookup(canonicalPath string) (Attribution, bool) {
	attr, ok := idx.byPath[canonicalPath]
	return attr, ok
}

func (idx *AttributionIndex) Len() int { return len(idx.byPath) }

// orphanLine renders an orphan finding. Attributed orphans carry the owning
// torrent; true orphans are just the host path (no pipe).
func orphanLine(attr *Attribution, hostPath string) string {
	if attr == nil {
		return hostPath
	}
	return strings.Join([]string{
		attr.Backend, attr.TorrentID, attr.TorrentName, attr.Label, attr.Tags, hostPath,
	}, "|")
}

// runawayLine renders a runaway finding with full attribution.
func runawayLine(attr Attribution, path string) string {
	return strings.Join([]string{
		attr.Backend, attr.TorrentID, attr.TorrentName, attr.Label, attr.Tags, path,
	}, "|")
}

// reportCardLine renders a report-card finding.
func reportCardLine(attr Attribution, message, savePath string) string {
	return strings.Join([]string{
		attr.Backend, attr.TorrentID, attr.TorrentName, attr.Label, attr.Tags, message, savePath,
	}, "|")
}

// ParseAttributedLine parses a six-field orphan/runaway line back into its
// attribution and path. Bare orphan paths and short lines fail with
// ErrMalformedLine.
func ParseAttributedLine(line string) (Attribution, string, error) {
	parts := strings.SplitN(line, "|", 6)
	if len(parts) < 6 {
		return Attribution{}, "", errors.Wrapf(ErrMalformedLine, "%q", line)
	}
	attr := Attribution{
		Backend:     parts[0],
		TorrentID:   parts[1],
		TorrentName: parts[2],
		Label:       parts[3],
		Tags:        parts[4],
	}
	return attr, parts[5], nil
}
