// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/pkg/pathutil"
)

// runRunawayPhase finds files the daemon claims to own that are gone from
// disk. Paths stay in the daemon's own namespace: the check runs against the
// container view, so no prefix mapping is applied.
func (r *Runner) runRunawayPhase(ctx context.Context, adapter backends.Adapter, b domain.BackendSettings, num, total int) error {
	r.progress.Set(num, total, fmt.Sprintf("%s: checking for runaways", b.Name), 0)

	torrents, err := adapter.Torrents(ctx, nil)
	if err != nil {
		return err
	}

	type entry struct {
		attr  Attribution
		paths []string
	}

	var (
		entries   []entry
		fileCount int
	)
	for _, t := range torrents {
		if err := ctx.Err(); err != nil {
			return err
		}

		files, err := adapter.Files(ctx, t.ID)
		if err != nil {
			log.Warn().Err(err).
				Str("backend", b.Name).
				Str("torrent", t.Name).
				Msg("file listing failed, treating torrent as empty")
			continue
		}

		e := entry{attr: attributionFor(t)}
		for _, f := range files {
			e.paths = append(e.paths, pathutil.RealCanonical(filepath.Join(t.SavePath, f.Path)))
		}
		fileCount += len(e.paths)
		entries = append(entries, e)
	}

	denom := fileCount
	if denom < 1 {
		denom = 1
	}

	var lines []string
	checked := 0
	for _, e := range entries {
		for _, p := range e.paths {
			checked++
			if checked%itemCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.progress.Set(num, total,
					fmt.Sprintf("%s: checking for runaways (%d/%d)", b.Name, checked, fileCount),
					float64(checked)/float64(denom)*100)
			}

			if !pathutil.ExistsRobust(p) {
				lines = append(lines, runawayLine(e.attr, p))
			}
		}
	}

	out := OutputPath(r.cfg.LogsDir, b.Name, PhaseRunaways)
	if err := WriteLines(out, lines); err != nil {
		return err
	}

	r.recordFinding(b.Name, PhaseRunaways, len(lines))
	r.progress.Set(num, total, fmt.Sprintf("%s: runaway check done", b.Name), 100)
	log.Info().Str("backend", b.Name).Int("runaways", len(lines)).Msg("runaway phase finished")
	return nil
}
