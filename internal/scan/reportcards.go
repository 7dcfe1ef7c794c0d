// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
)

// runReportCardPhase flags torrents whose trackers are all failing. A
// torrent earns a report card only when no tracker is working and at least
// one error is persistent; torrents with only transient noise are healthy
// enough to leave alone.
func (r *Runner) runReportCardPhase(ctx context.Context, adapter backends.Adapter, b domain.BackendSettings, num, total int) error {
	r.progress.Set(num, total, fmt.Sprintf("%s: grading trackers", b.Name), 0)

	torrents, err := adapter.Torrents(ctx, nil)
	if err != nil {
		return err
	}

	var lines []string
	for i, t := range torrents {
		if i%torrentBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(torrents) > 0 {
				r.progress.Set(num, total,
					fmt.Sprintf("%s: grading trackers (%d/%d)", b.Name, i, len(torrents)),
					float64(i)/float64(len(torrents))*100)
			}
		}

		trackers, err := adapter.Trackers(ctx, t.ID)
		if err != nil {
			log.Warn().Err(err).
				Str("backend", b.Name).
				Str("torrent", t.Name).
				Msg("tracker listing failed, skipping torrent")
			continue
		}

		if msg, flagged := gradeTrackers(trackers); flagged {
			lines = append(lines, reportCardLine(attributionFor(t), msg, t.SavePath))
		}
	}

	out := OutputPath(r.cfg.LogsDir, b.Name, PhaseReportCards)
	if err := WriteLines(out, lines); err != nil {
		return err
	}

	r.recordFinding(b.Name, PhaseReportCards, len(lines))
	r.progress.Set(num, total, fmt.Sprintf("%s: tracker grading done", b.Name), 100)
	log.Info().Str("backend", b.Name).Int("reportCards", len(lines)).Msg("report card phase finished")
	return nil
}

// gradeTrackers decides whether a torrent's tracker state earns a report
// card and builds the combined message: unique persistent errors, sorted
// and joined with "; ".
func gradeTrackers(trackers []backends.TrackerStatus) (string, bool) {
	working := 0
	seen := make(map[string]struct{})
	var persistent []string

	for _, tr := range trackers {
		switch tr.Health {
		case backends.TrackerWorking:
			working++
		case backends.TrackerError:
			msg := strings.TrimSpace(tr.Message)
			if msg == "" || isTransientTrackerError(msg) {
				continue
			}
			if _, dup := seen[msg]; dup {
				continue
			}
			seen[msg] = struct{}{}
			persistent = append(persistent, msg)
		}
	}

	if working > 0 || len(persistent) == 0 {
		return "", false
	}

	sort.Strings(persistent)
	return strings.Join(persistent, "; "), true
}
