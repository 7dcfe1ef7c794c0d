// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Progress is a snapshot of where the active run is. Percent is the overall
// completion across all phases, not just the current one.
type Progress struct {
	Phase   int     `json:"phase"`
	Total   int     `json:"total"`
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// ProgressTracker holds the current progress. Only the scan worker writes;
// API readers take snapshots.
type ProgressTracker struct {
	mu      sync.RWMutex
	current Progress
	updates int
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{current: IdleProgress}
}

// Set records progress for phase (1-based) of total, with phasePct the
// completion within that phase in [0,100]. The overall percent interpolates
// across equal phase slices.
func (t *ProgressTracker) Set(phase, total int, label string, phasePct float64) {
	if total < 1 {
		total = 1
	}
	if phasePct < 0 {
		phasePct = 0
	} else if phasePct > 100 {
		phasePct = 100
	}

	overall := float64(phase-1)/float64(total)*100 + phasePct/float64(total)
	if overall > 100 {
		overall = 100
	}

	t.mu.Lock()
	t.current = Progress{Phase: phase, Total: total, Label: label, Percent: overall}
	t.updates++
	logIt := t.updates%20 == 1
	t.mu.Unlock()

	if logIt {
		log.Debug().
			Int("phase", phase).
			Int("total", total).
			Str("label", label).
			Float64("percent", overall).
			Msg("scan progress")
	}
}

// IdleProgress is what status reports when no scan is active.
var IdleProgress = Progress{Label: "Idle"}

// Reset returns the tracker to the idle state.
func (t *ProgressTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = IdleProgress
	t.updates = 0
}

func (t *ProgressTracker) Snapshot() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current
}
