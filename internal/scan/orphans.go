// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/pkg/pathutil"
)

// runOrphanPhase finds on-disk files under the backend's torrent folder
// that no torrent owns. The first half of the phase collects every owned
// file from the daemon; the second half walks the filesystem and diffs.
// Output appends within a run so a file owned by a backend scanned later
// still shows up attributed rather than bare.
func (r *Runner) runOrphanPhase(ctx context.Context, adapter backends.Adapter, b domain.BackendSettings, num, total int) error {
	label := fmt.Sprintf("%s: collecting torrent files", b.Name)
	r.progress.Set(num, total, label, 0)

	owned, err := r.collectOwnedFiles(ctx, adapter, b, num, total)
	if err != nil {
		return err
	}

	lines, err := r.walkForOrphans(ctx, b, owned, num, total)
	if err != nil {
		return err
	}

	out := OutputPath(r.cfg.LogsDir, b.Name, PhaseOrphans)
	existing, err := ReadLines(out)
	if err != nil {
		return err
	}
	if err := WriteLines(out, append(existing, lines...)); err != nil {
		return err
	}

	r.recordFinding(b.Name, PhaseOrphans, len(lines))
	r.progress.Set(num, total, fmt.Sprintf("%s: orphan scan done", b.Name), 100)
	log.Info().Str("backend", b.Name).Int("orphans", len(lines)).Msg("orphan phase finished")
	return nil
}

// collectOwnedFiles returns the canonical container paths of every file the
// daemon owns, and feeds the run-wide attribution index keyed by host path.
// A torrent whose file listing fails contributes zero files; the scan keeps
// going so one bad torrent cannot abort a run.
func (r *Runner) collectOwnedFiles(ctx context.Context, adapter backends.Adapter, b domain.BackendSettings, num, total int) (map[string]struct{}, error) {
	torrents, err := adapter.Torrents(ctx, nil)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]struct{})

	for i := 0; i < len(torrents); i += torrentBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + torrentBatchSize
		if end > len(torrents) {
			end = len(torrents)
		}

		for _, t := range torrents[i:end] {
			files, err := adapter.Files(ctx, t.ID)
			if err != nil {
				log.Warn().Err(err).
					Str("backend", b.Name).
					Str("torrent", t.Name).
					Msg("file listing failed, treating torrent as empty")
				continue
			}

			attr := attributionFor(t)
			for _, f := range files {
				container := pathutil.RealCanonical(filepath.Join(t.SavePath, f.Path))
				owned[container] = struct{}{}
				r.attrib.Add(pathutil.MapPrefix(container, b.PathIn, b.PathOut), attr)
			}
		}

		pct := float64(end) / float64(len(torrents)) * 50
		r.progress.Set(num, total, fmt.Sprintf("%s: collecting torrent files (%d/%d)", b.Name, end, len(torrents)), pct)
	}

	return owned, nil
}

// walkForOrphans walks the backend's torrent folder on the host and returns
// a finding line for every file the daemon does not own. Unreadable entries
// are skipped, not fatal.
func (r *Runner) walkForOrphans(ctx context.Context, b domain.BackendSettings, owned map[string]struct{}, num, total int) ([]string, error) {
	root := pathutil.RealCanonical(b.TorrentFolder)
	if root == "" {
		log.Warn().Str("backend", b.Name).Msg("no torrent folder configured, skipping walk")
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		log.Warn().Err(err).Str("backend", b.Name).Str("root", root).Msg("torrent folder unreachable, skipping walk")
		return nil, nil
	}

	var lines []string
	walked := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Warn().Err(walkErr).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Directory boundaries double as cancellation checkpoints.
			return ctx.Err()
		}

		walked++
		if walked%itemCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			pct := 50 + minFloat(49, float64(walked)/200)
			r.progress.Set(num, total, fmt.Sprintf("%s: walking torrent folder (%d files)", b.Name, walked), pct)
		}

		host := pathutil.Normalize(path)
		container := pathutil.MapPrefix(host, b.PathOut, b.PathIn)
		if _, ok := owned[container]; ok {
			return nil
		}

		if attr, ok := r.attrib.Lookup(host); ok {
			lines = append(lines, orphanLine(&attr, host))
		} else {
			lines = append(lines, orphanLine(nil, host))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lines, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
