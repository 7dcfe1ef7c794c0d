// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/internal/metrics"
)

// ErrNoBackendsEnabled is returned when a scan is requested with every
// backend disabled.
var ErrNoBackendsEnabled = errors.New("no backends enabled")

const (
	itemCheckInterval = 100
	torrentBatchSize  = 25
	loginAttempts     = 3
	loginDelay        = 2 * time.Second
)

type phase struct {
	backend domain.BackendSettings
	kind    string
}

func phaseLabel(kind string) string {
	switch kind {
	case PhaseOrphans:
		return "orphans"
	case PhaseRunaways:
		return "runaways"
	case PhaseReportCards:
		return "report cards"
	default:
		return kind
	}
}

// Runner executes one scan: every enabled backend in fixed order, and for
// each backend the orphan, runaway, and report-card phases. A Runner is
// single-use.
type Runner struct {
	cfg      *domain.Config
	adapters map[string]backends.Adapter
	progress *ProgressTracker
	metrics  *metrics.Collector
	attrib   *AttributionIndex
	loggedIn map[string]bool
}

func NewRunner(cfg *domain.Config, adapters map[string]backends.Adapter, progress *ProgressTracker, collector *metrics.Collector) *Runner {
	return &Runner{
		cfg:      cfg,
		adapters: adapters,
		progress: progress,
		metrics:  collector,
		attrib:   NewAttributionIndex(),
		loggedIn: make(map[string]bool),
	}
}

// Run drives the full scan. It returns nil on completion, the context error
// on cancellation, and the first phase error otherwise.
func (r *Runner) Run(ctx context.Context) error {
	enabled := r.cfg.EnabledBackends()
	if len(enabled) == 0 {
		return ErrNoBackendsEnabled
	}

	names := make([]string, 0, len(enabled))
	for _, b := range enabled {
		names = append(names, b.Name)
	}
	if err := removeOutputs(r.cfg.LogsDir, names); err != nil {
		return err
	}

	var phases []phase
	for _, b := range enabled {
		for _, kind := range []string{PhaseOrphans, PhaseRunaways, PhaseReportCards} {
			phases = append(phases, phase{backend: b, kind: kind})
		}
	}

	start := time.Now()
	log.Info().Strs("backends", names).Int("phases", len(phases)).Msg("scan started")

	for i, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}

		adapter, ok := r.adapters[p.backend.Name]
		if !ok {
			return errors.Errorf("no adapter for backend %s", p.backend.Name)
		}
		if err := r.login(ctx, adapter); err != nil {
			return err
		}

		num := i + 1
		var err error
		switch p.kind {
		case PhaseOrphans:
			err = r.runOrphanPhase(ctx, adapter, p.backend, num, len(phases))
		case PhaseRunaways:
			err = r.runRunawayPhase(ctx, adapter, p.backend, num, len(phases))
		case PhaseReportCards:
			err = r.runReportCardPhase(ctx, adapter, p.backend, num, len(phases))
		}
		if err != nil {
			return err
		}
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("scan completed")
	return nil
}

// login authenticates the adapter once per run. Network failures are
// retried with a fixed delay; auth rejections fail immediately since
// retrying a bad password only hammers the daemon.
func (r *Runner) login(ctx context.Context, adapter backends.Adapter) error {
	if r.loggedIn[adapter.Name()] {
		return nil
	}

	err := retry.Do(
		func() error { return adapter.Login(ctx) },
		retry.Attempts(loginAttempts),
		retry.Delay(loginDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			var authErr *backends.AuthError
			return !errors.As(err, &authErr)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("backend", adapter.Name()).Msg("login failed, retrying")
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "login to %s", adapter.Name())
	}

	r.loggedIn[adapter.Name()] = true
	return nil
}

func (r *Runner) recordFinding(backend, kind string, count int) {
	if r.metrics != nil {
		r.metrics.AddFindings(backend, kind, count)
	}
}
